package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/condition"
	"github.com/RayGuolq/zabbix/internal/store"
	"github.com/RayGuolq/zabbix/internal/zabbix"
)

// Gateway 开通/下线流程依赖的 Zabbix 网关能力（*zabbix.Client 实现）
type Gateway interface {
	TemplateID(ctx context.Context, templateName string) (string, error)
	HostGroupID(ctx context.Context, groupName string) (string, error)
	UserGroupID(ctx context.Context, groupName string) (string, error)

	HostsByName(ctx context.Context, hostNames []string) ([]zabbix.Host, error)
	CreateHost(ctx context.Context, hostName, groupID, templateID string) (string, error)
	DeleteHosts(ctx context.Context, hostIDs []string) error

	UserByAlias(ctx context.Context, alias string) (*zabbix.User, error)
	CreateUser(ctx context.Context, alias, userGroupID, password string, medias []zabbix.Media) (string, error)
	UpdateUserMedia(ctx context.Context, userID string, medias []zabbix.Media) error

	ActionsByUserID(ctx context.Context, userID string) ([]zabbix.Action, error)
	ActionsByHostID(ctx context.Context, hostID string) ([]zabbix.Action, error)
	CreateAction(ctx context.Context, p zabbix.CreateActionParams) (string, error)
	UpdateActionConditions(ctx context.Context, actionID string, conditions []condition.Condition) error
	DeleteActions(ctx context.Context, actionIDs []string) error
}

// leaseTTL 单次流程租约时长，持有者崩溃后由 TTL 兜底释放
const leaseTTL = 2 * time.Minute

// Provisioner 设备开通/下线调和器。自身不持久化任何状态，
// 每次调用都从后端重新读取现状，按序推进到目标状态；
// 任一步失败即中止，不回滚已完成的步骤，由调用方重新发起。
type Provisioner struct {
	gateway Gateway
	locker  store.Locker
	logger  *zap.Logger

	hostGroupID string
	templateID  string
	userGroupID string
	channel     zabbix.NotificationChannel
}

// NewProvisioner 创建 Provisioner，初始化时解析设备 hostgroup/template/
// usergroup 三个固定资源的 id。channel 是新建动作的默认通知渠道。
func NewProvisioner(
	ctx context.Context,
	gateway Gateway,
	locker store.Locker,
	hostGroupName, templateName, userGroupName string,
	channel zabbix.NotificationChannel,
	logger *zap.Logger,
) (*Provisioner, error) {
	hostGroupID, err := gateway.HostGroupID(ctx, hostGroupName)
	if err != nil {
		return nil, fmt.Errorf("resolve hostgroup: %w", err)
	}
	templateID, err := gateway.TemplateID(ctx, templateName)
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}
	userGroupID, err := gateway.UserGroupID(ctx, userGroupName)
	if err != nil {
		return nil, fmt.Errorf("resolve usergroup: %w", err)
	}
	logger.Info("provisioner initialized",
		zap.String("host_group_id", hostGroupID),
		zap.String("template_id", templateID),
		zap.String("user_group_id", userGroupID),
	)
	return &Provisioner{
		gateway:     gateway,
		locker:      locker,
		logger:      logger,
		hostGroupID: hostGroupID,
		templateID:  templateID,
		userGroupID: userGroupID,
		channel:     channel,
	}, nil
}

// DeviceFirstSetup 设备首次开通：
//  1. 按逻辑地址确认 host 不存在（已存在视为冲突，不收编旧 host）
//  2. 创建 host，绑定设备 hostgroup/template
//  3. 按用户名解析 owner：不存在则创建（随机一次性口令），
//     存在则整体替换通知媒介
//  4. 逐个监控项调和告警动作：有则扩展条件（host 已在列表时跳过），
//     无则新建
//
// 成功返回 nil；失败返回该步骤的错误，已完成的步骤不回滚。
func (p *Provisioner) DeviceFirstSetup(ctx context.Context, logicalAddress, username string, smss, emails []string) error {
	logicalAddress = strings.TrimSpace(logicalAddress)
	username = strings.TrimSpace(username)
	if logicalAddress == "" || username == "" {
		return &Error{Kind: ErrInvalidParameter, Message: "Input parameters format is wrong"}
	}

	release, err := p.locker.Acquire(ctx, "device:"+logicalAddress, leaseTTL)
	if err != nil {
		return fmt.Errorf("acquire device lease: %w", err)
	}
	defer release()

	p.logger.Info("get host by logical address", zap.String("logical_address", logicalAddress))
	hosts, err := p.gateway.HostsByName(ctx, []string{logicalAddress})
	if err != nil {
		return err
	}
	if len(hosts) > 0 {
		return &Error{Kind: ErrConflict, Message: fmt.Sprintf("host[%s] already existing.", logicalAddress)}
	}

	p.logger.Info("create host", zap.String("logical_address", logicalAddress))
	hostID, err := p.gateway.CreateHost(ctx, logicalAddress, p.hostGroupID, p.templateID)
	if err != nil {
		return err
	}

	userID, err := p.reconcileOwner(ctx, username, smss, emails)
	if err != nil {
		return err
	}

	return p.reconcileActions(ctx, hostID, username, userID)
}

// reconcileOwner 解析/创建 owner 用户并同步通知媒介，返回 user id
func (p *Provisioner) reconcileOwner(ctx context.Context, username string, smss, emails []string) (string, error) {
	medias := buildMedias(smss, emails)

	p.logger.Info("get user info by name", zap.String("username", username))
	user, err := p.gateway.UserByAlias(ctx, username)
	if err != nil {
		return "", err
	}
	if user != nil {
		p.logger.Info("update user medias", zap.String("user_id", user.UserID))
		if err := p.gateway.UpdateUserMedia(ctx, user.UserID, medias); err != nil {
			return "", err
		}
		return user.UserID, nil
	}

	p.logger.Info("create user",
		zap.String("username", username),
		zap.String("user_group_id", p.userGroupID),
	)
	// 登录不是开通流程的目标，口令一次性随机生成后即丢弃
	password := uuid.NewString()
	return p.gateway.CreateUser(ctx, username, p.userGroupID, password, medias)
}

// reconcileActions 保证目录里每个监控项都有一个覆盖新 host 的告警动作。
// 动作归属按派生的完整名称精确匹配，不做子串搜索——监控项名称互为
// 子串时子串匹配会找错动作。已覆盖该 host 的动作不再重复追加条件。
func (p *Provisioner) reconcileActions(ctx context.Context, hostID, username, userID string) error {
	p.logger.Info("get actions by user id", zap.String("user_id", userID))
	actions, err := p.gateway.ActionsByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for _, item := range MonitoringItems {
		action := findActionForItem(actions, username, item)
		if action == nil {
			p.logger.Info("create action",
				zap.String("item", item),
				zap.String("username", username),
			)
			params := zabbix.CreateActionParams{
				Name:       actionName(username, item),
				Conditions: condition.Build([]string{hostID}, item, nil),
				Operations: []zabbix.Operation{{UserID: userID, Channel: p.channel}},
				Subject:    notificationSubject,
				Message:    notificationMessage,
			}
			if _, err := p.gateway.CreateAction(ctx, params); err != nil {
				return err
			}
			continue
		}

		if condition.ContainsHost(hostID, action.Conditions) {
			// 重复开通：host 条件已在，避免写入重复条件
			p.logger.Info("action already covers host",
				zap.String("action", action.Name),
				zap.String("host_id", hostID),
			)
			continue
		}
		p.logger.Info("update action", zap.String("action", action.Name))
		conditions := condition.Build([]string{hostID}, "", action.Conditions)
		if err := p.gateway.UpdateActionConditions(ctx, action.ID, conditions); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDeviceHost 设备下线：
//  1. 按逻辑地址解析 host（不存在即失败）
//  2. 从覆盖该 host 的每个告警动作里摘除 host 条件；
//     摘除后不再约束任何 host 的动作直接删除
//  3. 删除 host
func (p *Provisioner) RemoveDeviceHost(ctx context.Context, logicalAddress string) error {
	logicalAddress = strings.TrimSpace(logicalAddress)
	if logicalAddress == "" {
		return &Error{Kind: ErrInvalidParameter, Message: "Input parameters format is wrong"}
	}

	release, err := p.locker.Acquire(ctx, "device:"+logicalAddress, leaseTTL)
	if err != nil {
		return fmt.Errorf("acquire device lease: %w", err)
	}
	defer release()

	p.logger.Info("get host by logical address", zap.String("logical_address", logicalAddress))
	hosts, err := p.gateway.HostsByName(ctx, []string{logicalAddress})
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("host[%s] not existing.", logicalAddress)}
	}
	hostID := hosts[0].HostID

	p.logger.Info("get actions by host id", zap.String("host_id", hostID))
	actions, err := p.gateway.ActionsByHostID(ctx, hostID)
	if err != nil {
		return err
	}
	for _, action := range actions {
		conditions := condition.RemoveHost(hostID, action.Conditions)
		if condition.IsVacuous(conditions) {
			p.logger.Info("remove action",
				zap.String("action", action.Name),
				zap.String("action_id", action.ID),
			)
			if err := p.gateway.DeleteActions(ctx, []string{action.ID}); err != nil {
				return err
			}
			continue
		}
		p.logger.Info("update action", zap.String("action", action.Name))
		if err := p.gateway.UpdateActionConditions(ctx, action.ID, conditions); err != nil {
			return err
		}
	}

	p.logger.Info("remove host", zap.String("host_id", hostID))
	return p.gateway.DeleteHosts(ctx, []string{hostID})
}

func findActionForItem(actions []zabbix.Action, username, itemName string) *zabbix.Action {
	name := actionName(username, itemName)
	for i := range actions {
		if actions[i].Name == name {
			return &actions[i]
		}
	}
	return nil
}
