package consumer

import (
	"context"
	"fmt"

	"wisefido-lora/internal/models"
	"wisefido-lora/internal/store"

	"go.uber.org/zap"
)

// Mirror 数据包的可选下游镜像（如 Kafka）
type Mirror interface {
	Forward(ctx context.Context, packet *models.RawPacket) error
}

// Recorder 两种传输方式（订阅 / 回调）共用的写入入口
type Recorder struct {
	store  store.LatestPacketStore
	mirror Mirror // 可为 nil
	logger *zap.Logger
}

// NewRecorder 创建 Recorder；mirror 可为 nil
func NewRecorder(packetStore store.LatestPacketStore, mirror Mirror, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:  packetStore,
		mirror: mirror,
		logger: logger,
	}
}

// Record 写入最新数据包，随后镜像到下游
// 镜像失败只记日志，不影响写入结果。
func (r *Recorder) Record(ctx context.Context, packet *models.RawPacket) error {
	if err := r.store.Write(ctx, packet); err != nil {
		return fmt.Errorf("failed to persist packet: %w", err)
	}

	if r.mirror != nil {
		if err := r.mirror.Forward(ctx, packet); err != nil {
			r.logger.Warn("Failed to mirror packet",
				zap.String("topic", packet.Topic),
				zap.Error(err),
			)
		}
	}
	return nil
}
