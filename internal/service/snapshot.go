package service

import (
	"context"
	"errors"

	"wisefido-lora/internal/demo"
	"wisefido-lora/internal/evaluator"
	"wisefido-lora/internal/models"
	"wisefido-lora/internal/normalizer"
	"wisefido-lora/internal/store"

	"go.uber.org/zap"
)

// SnapshotSource 展示层轮询的读取入口
type SnapshotSource interface {
	GetSnapshot(ctx context.Context) *models.Snapshot
}

// LiveProvider 存储 -> 标准化 -> 报警评估
type LiveProvider struct {
	store  store.LatestPacketStore
	logger *zap.Logger
}

// NewLiveProvider 创建实时快照提供者
func NewLiveProvider(packetStore store.LatestPacketStore, logger *zap.Logger) *LiveProvider {
	return &LiveProvider{
		store:  packetStore,
		logger: logger,
	}
}

// GetSnapshot 每次轮询只读一次存储，reading 与 alerts 来自同一个数据包
// 存储为空或读取失败都返回等待状态，不向上抛错。
func (p *LiveProvider) GetSnapshot(ctx context.Context) *models.Snapshot {
	packet, err := p.store.Read(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoPacket) {
			p.logger.Warn("Latest packet unreadable, treating as absent", zap.Error(err))
		}
		return models.WaitingSnapshot()
	}

	reading := normalizer.Normalize(packet.Payload, packet.ReceivedAt)
	return &models.Snapshot{
		Reading: reading,
		Alerts:  evaluator.Evaluate(reading),
	}
}

// DemoProvider 未配置实时连接时的演示数据
type DemoProvider struct {
	generator *demo.Generator
}

// NewDemoProvider 创建演示快照提供者
func NewDemoProvider(generator *demo.Generator) *DemoProvider {
	return &DemoProvider{generator: generator}
}

// GetSnapshot 演示读数走同一个报警评估器
func (p *DemoProvider) GetSnapshot(ctx context.Context) *models.Snapshot {
	reading := p.generator.Next()
	return &models.Snapshot{
		Reading: reading,
		Alerts:  evaluator.Evaluate(reading),
	}
}
