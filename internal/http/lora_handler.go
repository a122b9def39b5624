package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"wisefido-lora/internal/consumer"
	"wisefido-lora/internal/models"

	"go.uber.org/zap"
)

// MaxUplinkBytes 回调请求体上限
const MaxUplinkBytes = 1 << 20

// WaitingMessage 尚未收到数据包时的提示
const WaitingMessage = "waiting for first packet"

// SnapshotSource 快照来源（实时或演示）
type SnapshotSource interface {
	GetSnapshot(ctx context.Context) *models.Snapshot
}

// PacketRecorder 数据包写入入口
type PacketRecorder interface {
	Record(ctx context.Context, packet *models.RawPacket) error
}

// LoraHandler LoRa 遥测接口
type LoraHandler struct {
	snapshots SnapshotSource
	recorder  PacketRecorder // 为 nil 时不接收回调（演示模式）
	logger    *zap.Logger
	now       func() time.Time
}

func NewLoraHandler(snapshots SnapshotSource, recorder PacketRecorder, logger *zap.Logger) *LoraHandler {
	return &LoraHandler{
		snapshots: snapshots,
		recorder:  recorder,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetSnapshot GET /lora/api/v1/snapshot
func (h *LoraHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.snapshots.GetSnapshot(r.Context())
	if snapshot.Waiting() {
		writeJSON(w, http.StatusOK, Warn(WaitingMessage, models.WaitingSnapshot()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(snapshot))
}

// PostUplink POST /lora/api/v1/uplink
// 请求体与 MQTT 消息体走同一个解析流程，无 topic。
func (h *LoraHandler) PostUplink(w http.ResponseWriter, r *http.Request) {
	if h.recorder == nil {
		writeJSON(w, http.StatusServiceUnavailable, Fail("uplink ingestion disabled"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUplinkBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Fail("uplink body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, Fail("failed to read uplink body"))
		return
	}

	packet := consumer.ParseUplink("", body, h.now())
	if err := h.recorder.Record(r.Context(), packet); err != nil {
		h.logger.Error("Failed to record webhook uplink", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to record uplink"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"received_at": packet.ReceivedAt}))
}
