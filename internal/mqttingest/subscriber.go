package mqttingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/RayGuolq/zabbix/internal/config"
	"github.com/RayGuolq/zabbix/internal/telemetry"
)

const connectTimeout = 10 * time.Second

// Subscriber 订阅设备遥测主题，报文交给共用的遥测管道处理。
// 单条报文处理失败只记日志，不中断订阅。
type Subscriber struct {
	client   mqtt.Client
	config   *config.MQTTConfig
	pipeline *telemetry.Pipeline
	logger   *zap.Logger
}

func NewSubscriber(cfg *config.MQTTConfig, pipeline *telemetry.Pipeline, logger *zap.Logger) (*Subscriber, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	return &Subscriber{
		client:   client,
		config:   cfg,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// Start 订阅遥测主题
func (s *Subscriber) Start(ctx context.Context) error {
	token := s.client.Subscribe(s.config.Topic, s.config.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(ctx, msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to topic %s: %w", s.config.Topic, token.Error())
	}
	s.logger.Info("mqtt telemetry subscriber started",
		zap.String("broker", s.config.Broker),
		zap.String("topic", s.config.Topic),
	)
	return nil
}

func (s *Subscriber) handleMessage(ctx context.Context, topic string, payload []byte) {
	if err := s.pipeline.Ingest(ctx, payload); err != nil {
		if errors.Is(err, telemetry.ErrInvalidPayload) {
			s.logger.Info("drop invalid telemetry message",
				zap.String("topic", topic),
				zap.Error(err),
			)
			return
		}
		s.logger.Error("handle telemetry message",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

// Stop 退订并断开连接
func (s *Subscriber) Stop() {
	token := s.client.Unsubscribe(s.config.Topic)
	token.Wait()
	s.client.Disconnect(250)
	s.logger.Info("mqtt telemetry subscriber stopped")
}
