package consumer

import (
	"encoding/base64"
	"time"
	"unicode/utf8"

	"wisefido-lora/internal/models"
)

const (
	// TTN v3 上行信封
	uplinkEnvelopeKey  = "uplink_message"
	decodedPayloadKey  = "decoded_payload"
	rawUplinkResidue   = "raw_uplink"
	rawBodyKey         = "raw"
	rawBodyEncodingKey = "raw_encoding"
)

// ParseUplink 把一条入站消息转换为 RawPacket，任何消息都不会被丢弃
//  1. 先按 JSON 解析，失败则包装为 {"raw": <文本>}（非 UTF-8 用 base64）
//  2. 带 uplink_message 信封时取已解码的 decoded_payload；没有则保留为 raw_uplink
//  3. 否则整个结构即载荷
//  4. received_at 使用本地时钟
func ParseUplink(topic string, body []byte, receivedAt time.Time) *models.RawPacket {
	return &models.RawPacket{
		Topic:      topic,
		Payload:    unwrapPayload(decodeBody(body)),
		ReceivedAt: receivedAt,
	}
}

func decodeBody(body []byte) models.Value {
	if v, err := models.ParseJSON(body); err == nil {
		return v
	}
	if utf8.Valid(body) {
		return models.Object(map[string]models.Value{
			rawBodyKey: models.String(string(body)),
		})
	}
	return models.Object(map[string]models.Value{
		rawBodyKey:         models.String(base64.StdEncoding.EncodeToString(body)),
		rawBodyEncodingKey: models.String("base64"),
	})
}

func unwrapPayload(decoded models.Value) models.Value {
	envelope, ok := decoded.Get(uplinkEnvelopeKey)
	if !ok {
		return decoded
	}
	if inner, ok := envelope.Get(decodedPayloadKey); ok && inner.Truthy() {
		return inner
	}
	// 网络服务器没有解码器：保留原始信封供人工查看
	return models.Object(map[string]models.Value{
		rawUplinkResidue: envelope,
	})
}
