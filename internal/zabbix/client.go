package zabbix

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/condition"
)

const jsonrpcVersion = "2.0"

// Client Zabbix JSON-RPC API 客户端（Resource Gateway）
// 登录 token 首次调用时懒加载，RWMutex 保证并发下只发起一次登录。
// 网关不做任何重试：create 类调用在网络层不幂等，重试策略由调用方决定。
type Client struct {
	httpClient *resty.Client
	user       string
	password   string
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient 创建 Zabbix 客户端
func NewClient(apiURL, user, password string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		user:       user,
		password:   password,
		logger:     logger,
	}
}

type rpcRequest struct {
	JSONRPC string  `json:"jsonrpc"`
	Method  string  `json:"method"`
	Params  any     `json:"params"`
	ID      int     `json:"id"`
	Auth    *string `json:"auth"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// post 发送一次 JSON-RPC 请求并做统一的错误分类：
// 非 200 → *TransportError，error 对象 → *APIError，其余返回 result 原文。
func (c *Client) post(ctx context.Context, method string, params any, auth *string) (json.RawMessage, error) {
	request := rpcRequest{
		JSONRPC: jsonrpcVersion,
		Method:  method,
		Params:  params,
		ID:      1,
		Auth:    auth,
	}

	var response rpcResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("")
	if err != nil {
		c.logger.Error("zabbix request failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, &TransportError{Status: 0, Reason: err.Error()}
	}
	if resp.StatusCode() != 200 {
		c.logger.Error("zabbix request failed",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode()),
			zap.String("reason", resp.Status()),
		)
		return nil, &TransportError{Status: resp.StatusCode(), Reason: resp.Status()}
	}
	if response.Error != nil {
		c.logger.Error("zabbix api error",
			zap.String("method", method),
			zap.Int("code", response.Error.Code),
			zap.String("reason", response.Error.Reason()),
		)
		return nil, response.Error
	}
	return response.Result, nil
}

// call 携带登录 token 调用 method，结果解码到 out（out 为 nil 时丢弃）
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}
	result, err := c.post(ctx, method, params, &token)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return nil
}

// authToken 获取登录 token，仅首次调用时向后端发起 user.login
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		return token, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	params := map[string]any{
		"user":     c.user,
		"password": c.password,
	}
	result, err := c.post(ctx, "user.login", params, nil)
	if err != nil {
		return "", fmt.Errorf("zabbix login failed: %w", err)
	}
	var token string
	if err := json.Unmarshal(result, &token); err != nil {
		return "", fmt.Errorf("unmarshal login result: %w", err)
	}
	c.logger.Info("zabbix login succeeded", zap.String("user", c.user))
	return token, nil
}

// Reauthenticate 丢弃缓存 token 并重新登录（token 过期时显式调用）
func (c *Client) Reauthenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, err := c.login(ctx)
	if err != nil {
		return err
	}
	c.token = token
	return nil
}

// TemplateID 按模板名查询 template id
func (c *Client) TemplateID(ctx context.Context, templateName string) (string, error) {
	params := map[string]any{
		"output": []string{"templateid"},
		"filter": map[string]any{"host": []string{templateName}},
	}
	var result []struct {
		TemplateID string `json:"templateid"`
	}
	if err := c.call(ctx, "template.get", params, &result); err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", fmt.Errorf("template[%s] not found", templateName)
	}
	return result[0].TemplateID, nil
}

// HostGroupID 按组名查询 hostgroup id
func (c *Client) HostGroupID(ctx context.Context, groupName string) (string, error) {
	params := map[string]any{
		"output": "extend",
		"filter": map[string]any{"name": []string{groupName}},
	}
	var result []struct {
		GroupID string `json:"groupid"`
	}
	if err := c.call(ctx, "hostgroup.get", params, &result); err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", fmt.Errorf("hostgroup[%s] not found", groupName)
	}
	return result[0].GroupID, nil
}

// UserGroupID 按组名查询 usergroup id
func (c *Client) UserGroupID(ctx context.Context, groupName string) (string, error) {
	params := map[string]any{
		"output": "extend",
		"filter": map[string]any{"name": []string{groupName}},
	}
	var result []struct {
		UsrGrpID string `json:"usrgrpid"`
	}
	if err := c.call(ctx, "usergroup.get", params, &result); err != nil {
		return "", err
	}
	if len(result) == 0 {
		return "", fmt.Errorf("usergroup[%s] not found", groupName)
	}
	return result[0].UsrGrpID, nil
}

// UserByAlias 按登录名查询用户，不存在时返回 (nil, nil)
func (c *Client) UserByAlias(ctx context.Context, alias string) (*User, error) {
	params := map[string]any{
		"output":       "extend",
		"selectMedias": "extend",
		"filter":       map[string]any{"alias": []string{alias}},
	}
	var result []wireUser
	if err := c.call(ctx, "user.get", params, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return decodeUser(result[0]), nil
}

// CreateUser 创建用户并绑定通知媒介，返回 user id
func (c *Client) CreateUser(ctx context.Context, alias, userGroupID, password string, medias []Media) (string, error) {
	params := map[string]any{
		"alias":       alias,
		"passwd":      password,
		"usrgrps":     []map[string]string{{"usrgrpid": userGroupID}},
		"user_medias": encodeMedias(medias),
	}
	var result struct {
		UserIDs []string `json:"userids"`
	}
	if err := c.call(ctx, "user.create", params, &result); err != nil {
		return "", err
	}
	if len(result.UserIDs) == 0 {
		return "", fmt.Errorf("user.create returned no user id")
	}
	return result.UserIDs[0], nil
}

// UpdateUserMedia 整体替换用户的通知媒介（user.updatemedia 不做合并）
func (c *Client) UpdateUserMedia(ctx context.Context, userID string, medias []Media) error {
	params := map[string]any{
		"users":  []map[string]string{{"userid": userID}},
		"medias": encodeMedias(medias),
	}
	return c.call(ctx, "user.updatemedia", params, nil)
}

// CreateHost 创建 host 并绑定设备 hostgroup/template，返回 host id
func (c *Client) CreateHost(ctx context.Context, hostName, groupID, templateID string) (string, error) {
	params := []map[string]any{{
		"host": hostName,
		// 设备通过 trapper 上报，不会被主动采集；接口信息仅为建 host 所需
		"interfaces": []map[string]any{{
			"type": 1,
			"main": 1,
			"useip": 1,
			"ip":   "127.0.0.1",
			"dns":  "",
			"port": "10050",
		}},
		"groups":    []map[string]string{{"groupid": groupID}},
		"templates": []map[string]string{{"templateid": templateID}},
	}}
	var result struct {
		HostIDs []string `json:"hostids"`
	}
	if err := c.call(ctx, "host.create", params, &result); err != nil {
		return "", err
	}
	if len(result.HostIDs) == 0 {
		return "", fmt.Errorf("host.create returned no host id")
	}
	return result.HostIDs[0], nil
}

// HostsByName 按 host 名称批量查询，未命中时返回空 slice
func (c *Client) HostsByName(ctx context.Context, hostNames []string) ([]Host, error) {
	params := map[string]any{
		"output": "extend",
		"filter": map[string]any{"host": hostNames},
	}
	var result []Host
	if err := c.call(ctx, "host.get", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteHosts 按 id 批量删除 host
func (c *Client) DeleteHosts(ctx context.Context, hostIDs []string) error {
	return c.call(ctx, "host.delete", hostIDs, nil)
}

// CreateAction 创建 trigger action，返回 action id
func (c *Client) CreateAction(ctx context.Context, p CreateActionParams) (string, error) {
	params := []map[string]any{{
		"name":          p.Name,
		"eventsource":   wireEventSourceTriggers,
		"status":        0,
		"esc_period":    120,
		"def_shortdata": p.Subject,
		"def_longdata":  p.Message,
		"filter": map[string]any{
			"evaltype":   "0",
			"conditions": encodeConditions(p.Conditions),
		},
		"operations": encodeOperations(p.Operations),
	}}
	var result struct {
		ActionIDs []string `json:"actionids"`
	}
	if err := c.call(ctx, "action.create", params, &result); err != nil {
		return "", err
	}
	if len(result.ActionIDs) == 0 {
		return "", fmt.Errorf("action.create returned no action id")
	}
	return result.ActionIDs[0], nil
}

// DeleteActions 按 id 批量删除 action
func (c *Client) DeleteActions(ctx context.Context, actionIDs []string) error {
	return c.call(ctx, "action.delete", actionIDs, nil)
}

// ActionsByUserID 查询通知目标包含指定用户的 trigger action
func (c *Client) ActionsByUserID(ctx context.Context, userID string) ([]Action, error) {
	return c.actions(ctx, map[string]any{"userids": []string{userID}})
}

// ActionsByHostID 查询条件覆盖指定 host 的 trigger action
func (c *Client) ActionsByHostID(ctx context.Context, hostID string) ([]Action, error) {
	return c.actions(ctx, map[string]any{"hostids": []string{hostID}})
}

func (c *Client) actions(ctx context.Context, scope map[string]any) ([]Action, error) {
	params := map[string]any{
		"output":                   "extend",
		"selectOperations":         "extend",
		"selectRecoveryOperations": "extend",
		"selectFilter":             "extend",
		"filter":                   map[string]any{"eventsource": wireEventSourceTriggers},
	}
	for k, v := range scope {
		params[k] = v
	}
	var result []wireAction
	if err := c.call(ctx, "action.get", params, &result); err != nil {
		return nil, err
	}
	actions := make([]Action, 0, len(result))
	for _, w := range result {
		actions = append(actions, Action{
			ID:         w.ActionID,
			Name:       w.Name,
			Conditions: decodeConditions(w.Filter.Conditions),
		})
	}
	return actions, nil
}

// UpdateActionConditions 整体替换 action 的条件列表
func (c *Client) UpdateActionConditions(ctx context.Context, actionID string, conditions []condition.Condition) error {
	params := map[string]any{
		"actionid": actionID,
		"filter": map[string]any{
			"evaltype":   "0",
			"conditions": encodeConditions(conditions),
		},
	}
	return c.call(ctx, "action.update", params, nil)
}

// UpdateActionOperations 整体替换 action 的通知操作
func (c *Client) UpdateActionOperations(ctx context.Context, actionID string, ops []Operation) error {
	params := map[string]any{
		"actionid":   actionID,
		"operations": encodeOperations(ops),
	}
	return c.call(ctx, "action.update", params, nil)
}
