package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSConfig 短信服务商接入参数，Password 为服务商约定的 MD5 口令串
type SMSConfig struct {
	ServiceURL string
	ClientID   string
	ClientName string
	Password   string
}

// SMSClient 短信服务商客户端。
// 服务商以表单 POST 接收，响应为 `State:1,Id:...,FailPhone:` 形式的文本。
type SMSClient struct {
	httpClient *resty.Client
	config     SMSConfig
	logger     *zap.Logger
}

func NewSMSClient(config SMSConfig, logger *zap.Logger) *SMSClient {
	httpClient := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)
	return &SMSClient{
		httpClient: httpClient,
		config:     config,
		logger:     logger,
	}
}

// Send 发送一条短信，响应 State 非 1 视为失败
func (c *SMSClient) Send(ctx context.Context, mobile, message string) error {
	c.logger.Info("send sms", zap.String("mobile", mobile))

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"Id":        c.config.ClientID,
			"Name":      c.config.ClientName,
			"Psw":       c.config.Password,
			"Message":   message,
			"Phone":     mobile,
			"Timestamp": "0",
		}).
		Post(c.config.ServiceURL)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("sms service returned status %d", resp.StatusCode())
	}

	body := resp.String()
	if !responseOK(body) {
		return fmt.Errorf("sms service rejected message: %s", strings.TrimSpace(body))
	}
	c.logger.Info("sms sent", zap.String("mobile", mobile))
	return nil
}

// responseOK 解析服务商响应，State:1 表示成功
func responseOK(body string) bool {
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "State:") {
			continue
		}
		state, err := strconv.Atoi(strings.TrimPrefix(part, "State:"))
		if err != nil {
			return false
		}
		return state == 1
	}
	return false
}
