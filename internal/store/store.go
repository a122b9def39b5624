package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"wisefido-lora/internal/models"
)

var (
	// ErrNoPacket 尚未写入任何数据包（合法的初始状态）
	ErrNoPacket = errors.New("no packet received yet")
	// ErrCorruptPacket 持久化内容无法解析
	ErrCorruptPacket = errors.New("corrupt packet document")
)

// LatestPacketStore 单槽位的最新数据包存储
// 写入整体替换，读取永远拿到完整记录；单写多读。
type LatestPacketStore interface {
	Write(ctx context.Context, packet *models.RawPacket) error
	Read(ctx context.Context) (*models.RawPacket, error)
}

// packetDocument 持久化格式：{"topic", "payload", "timestamp"}
type packetDocument struct {
	Topic     string       `json:"topic,omitempty"`
	Payload   models.Value `json:"payload"`
	Timestamp float64      `json:"timestamp"` // unix 秒（带小数）
}

// EncodePacket 序列化为持久化文档
func EncodePacket(packet *models.RawPacket) ([]byte, error) {
	if packet == nil {
		return nil, fmt.Errorf("nil packet")
	}
	doc := packetDocument{
		Topic:     packet.Topic,
		Payload:   packet.Payload,
		Timestamp: toUnixSeconds(packet.ReceivedAt),
	}
	return json.Marshal(doc)
}

// DecodePacket 解析持久化文档
// 兼容旧写入方：topic 可能写在 received_topic；没有 payload 键时整个对象就是载荷。
func DecodePacket(data []byte) (*models.RawPacket, error) {
	doc, err := models.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPacket, err)
	}
	if doc.Kind() != models.KindObject {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrCorruptPacket, doc.Kind())
	}

	packet := &models.RawPacket{}
	for _, key := range []string{"topic", "received_topic"} {
		if v, ok := doc.Get(key); ok {
			if s, ok := v.Str(); ok {
				packet.Topic = s
				break
			}
		}
	}
	if ts, ok := doc.Get("timestamp"); ok {
		if secs, ok := ts.AsNumber(); ok {
			packet.ReceivedAt = fromUnixSeconds(secs)
		}
	}

	if payload, ok := doc.Get("payload"); ok {
		packet.Payload = payload
	} else {
		packet.Payload = doc
	}
	return packet, nil
}

func toUnixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(secs float64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}
