package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	mqttcommon "wisefido-lora/internal/mqtt"

	"go.uber.org/zap"
)

// ErrAlreadyRunning 同一连接器不允许并发 Run
var ErrAlreadyRunning = errors.New("connector already running")

// State 连接器状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Clock 可注入的时钟，测试中替换以驱动退避
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectorConfig 连接器参数
type ConnectorConfig struct {
	Topic        string
	QoS          byte
	Backoff      time.Duration // 断线后固定等待
	WriteTimeout time.Duration // 单条消息写入超时
}

// Connector MQTT 摄取连接器
// Disconnected -> Connecting -> Subscribed -> Disconnected（任何传输错误），
// 断线后固定退避再重连，进程存活期间一直循环，连接失败从不视为致命错误。
type Connector struct {
	config   ConnectorConfig
	dialer   mqttcommon.Dialer
	recorder *Recorder
	clock    Clock
	logger   *zap.Logger

	state   atomic.Int32
	running atomic.Bool
}

// ConnectorOption 连接器选项
type ConnectorOption func(*Connector)

// WithClock 替换时钟（测试用）
func WithClock(clock Clock) ConnectorOption {
	return func(c *Connector) { c.clock = clock }
}

// NewConnector 创建连接器
func NewConnector(
	cfg ConnectorConfig,
	dialer mqttcommon.Dialer,
	recorder *Recorder,
	logger *zap.Logger,
	opts ...ConnectorOption,
) *Connector {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	c := &Connector{
		config:   cfg,
		dialer:   dialer,
		recorder: recorder,
		clock:    realClock{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 当前状态
func (c *Connector) State() State {
	return State(c.state.Load())
}

func (c *Connector) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.logger.Info("Connector state changed",
			zap.String("from", prev.String()),
			zap.String("to", s.String()),
			zap.String("topic", c.config.Topic),
		)
	}
}

// Run 阻塞运行直到 ctx 取消；ctx 取消时返回 nil
// 同一时刻最多一次连接/订阅尝试。
func (c *Connector) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return nil
		}

		err := c.runSession(ctx)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Warn("MQTT session ended, retrying",
			zap.String("topic", c.config.Topic),
			zap.Duration("backoff", c.config.Backoff),
			zap.Error(err),
		)
		if err := c.clock.Sleep(ctx, c.config.Backoff); err != nil {
			return nil
		}
	}
}

// runSession 连接、订阅，然后等待断线
func (c *Connector) runSession(ctx context.Context) error {
	c.setState(StateConnecting)

	session, err := c.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer session.Disconnect()

	if err := session.Subscribe(c.config.Topic, c.config.QoS, c.handleMessage); err != nil {
		return err
	}
	c.setState(StateSubscribed)

	select {
	case err := <-session.Lost():
		if err == nil {
			err = errors.New("connection lost")
		}
		return err
	case <-ctx.Done():
		return nil
	}
}

// handleMessage 处理MQTT消息
// 写入失败只记录，下一条消息会重新写入；不向 paho 返回错误以免重复日志。
func (c *Connector) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	packet := ParseUplink(topic, payload, c.clock.Now())

	ctx, cancel := context.WithTimeout(context.Background(), c.config.WriteTimeout)
	defer cancel()

	if err := c.recorder.Record(ctx, packet); err != nil {
		c.logger.Error("Failed to record uplink",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
	return nil
}
