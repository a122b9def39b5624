package forwarder

import (
	"context"
	"fmt"
	"time"

	"wisefido-lora/internal/models"
	"wisefido-lora/internal/store"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter kafka.Writer 的最小接口（测试中替换）
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMirror 把每个 RawPacket 镜像到 Kafka 主题
// key = MQTT topic（按设备分区），value = 与存储相同的 JSON 文档。
type KafkaMirror struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaMirror 创建异步 Kafka 镜像
func NewKafkaMirror(brokers []string, topic string, logger *zap.Logger) *KafkaMirror {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // 按 key 分区
		BatchSize:    100,
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true, // 不阻塞连接器
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("Kafka mirror batch failed",
					zap.String("kafka_topic", topic),
					zap.Int("messages", len(messages)),
					zap.Error(err),
				)
			}
		},
	}
	return newKafkaMirror(w, topic, logger)
}

func newKafkaMirror(w messageWriter, topic string, logger *zap.Logger) *KafkaMirror {
	return &KafkaMirror{
		writer: w,
		topic:  topic,
		logger: logger,
	}
}

// Forward 镜像一个数据包
func (m *KafkaMirror) Forward(ctx context.Context, packet *models.RawPacket) error {
	value, err := store.EncodePacket(packet)
	if err != nil {
		return fmt.Errorf("failed to encode packet: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(packet.Topic),
		Value: value,
		Time:  packet.ReceivedAt,
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write to kafka topic %s: %w", m.topic, err)
	}

	m.logger.Debug("Packet mirrored to Kafka",
		zap.String("kafka_topic", m.topic),
		zap.String("topic", packet.Topic),
	)
	return nil
}

// Close 刷新并关闭 writer
func (m *KafkaMirror) Close() error {
	return m.writer.Close()
}
