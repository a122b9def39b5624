package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"wisefido-lora/internal/models"
	mqttcommon "wisefido-lora/internal/mqtt"
	"wisefido-lora/internal/store"
)

// memStore 内存版 LatestPacketStore（仅用于单元测试）
type memStore struct {
	mu       sync.Mutex
	packet   *models.RawPacket
	writes   int
	failNext int
}

func (s *memStore) Write(ctx context.Context, packet *models.RawPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return errors.New("disk full")
	}
	s.packet = packet
	s.writes++
	return nil
}

func (s *memStore) Read(ctx context.Context) (*models.RawPacket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.packet == nil {
		return nil, store.ErrNoPacket
	}
	return s.packet, nil
}

func (s *memStore) last() *models.RawPacket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packet
}

type fakeMirror struct {
	mu      sync.Mutex
	packets []*models.RawPacket
	err     error
}

func (m *fakeMirror) Forward(ctx context.Context, packet *models.RawPacket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packets = append(m.packets, packet)
	return m.err
}

// fakeClock Sleep 立即返回并记录时长
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	c.mu.Unlock()

	if c.onSleep != nil {
		c.onSleep(n)
	}
	return ctx.Err()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeSession struct {
	mu           sync.Mutex
	topic        string
	qos          byte
	handler      mqttcommon.MessageHandler
	subscribeErr error
	subscribed   chan struct{}
	lost         chan error
	disconnected bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		subscribed: make(chan struct{}),
		lost:       make(chan error, 1),
	}
}

func (s *fakeSession) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.topic = topic
	s.qos = qos
	s.handler = handler
	close(s.subscribed)
	return nil
}

func (s *fakeSession) Lost() <-chan error { return s.lost }

func (s *fakeSession) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
}

func (s *fakeSession) isDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *fakeSession) deliver(topic string, body []byte) error {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	return h(topic, body)
}

// fakeDialer 依次返回 errs 中的错误，用尽后返回新会话
type fakeDialer struct {
	mu         sync.Mutex
	calls      int
	errs       []error
	block      bool // 阻塞直到 ctx 取消
	newSession func() *fakeSession
	sessions   chan *fakeSession
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		newSession: newFakeSession,
		sessions:   make(chan *fakeSession, 16),
	}
}

func (d *fakeDialer) Dial(ctx context.Context) (mqttcommon.Session, error) {
	d.mu.Lock()
	d.calls++
	var err error
	if len(d.errs) > 0 {
		err = d.errs[0]
		d.errs = d.errs[1:]
	}
	block := d.block
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	s := d.newSession()
	d.sessions <- s
	return s, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
