package mqtt

import (
	"context"
	"fmt"
	"time"

	"wisefido-lora/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageHandler 消息处理函数类型
type MessageHandler func(topic string, payload []byte) error

// Session 一次 broker 连接
// Lost 在连接断开时收到错误；Disconnect 后不再发送。
type Session interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Lost() <-chan error
	Disconnect()
}

// Dialer 建立新的 Session
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// PahoDialer 基于 paho 的 Dialer
// 关闭 paho 自带的自动重连，重连节奏由上层连接器控制。
type PahoDialer struct {
	config *config.MQTTConfig
	logger *zap.Logger
}

// NewDialer 创建MQTT Dialer
func NewDialer(cfg *config.MQTTConfig, logger *zap.Logger) *PahoDialer {
	return &PahoDialer{
		config: cfg,
		logger: logger,
	}
}

// ClientID 配置为空时生成 wisefido-lora-<uuid>
func ClientID(cfg *config.MQTTConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "wisefido-lora-" + uuid.NewString()[:8]
}

// Dial 连接 broker；ctx 取消或超时即放弃本次连接
func (d *PahoDialer) Dial(ctx context.Context) (Session, error) {
	lost := make(chan error, 1)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(d.config.BrokerURL())
	opts.SetClientID(ClientID(d.config))

	if d.config.Username != "" {
		opts.SetUsername(d.config.Username)
	}
	if d.config.Password != "" {
		opts.SetPassword(d.config.Password)
	}

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true) // 保证按到达顺序写入
	opts.SetKeepAlive(60 * time.Second)
	if d.config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(d.config.ConnectTimeout)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		select {
		case lost <- err:
		default:
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", d.config.BrokerURL(), err)
	}

	return &pahoSession{
		client: client,
		lost:   lost,
		logger: d.logger,
	}, nil
}

// pahoSession MQTT客户端封装
type pahoSession struct {
	client mqtt.Client
	lost   chan error
	logger *zap.Logger
}

// Subscribe 订阅主题
func (s *pahoSession) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			// 记录错误，但不中断处理
			s.logger.Error("Error handling MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (s *pahoSession) Lost() <-chan error {
	return s.lost
}

// Disconnect 断开连接
func (s *pahoSession) Disconnect() {
	if s.client.IsConnected() {
		s.client.Disconnect(250) // 250ms等待时间
	}
}
