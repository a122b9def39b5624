package store

import (
	"context"
	"fmt"

	"wisefido-lora/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore 基于单个 Redis 键的最新数据包存储（不设 TTL）
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
		logger: logger,
	}
}

// Write SET 整体覆盖
func (s *RedisStore) Write(ctx context.Context, packet *models.RawPacket) error {
	data, err := EncodePacket(packet)
	if err != nil {
		return fmt.Errorf("failed to encode packet: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.key, err)
	}

	s.logger.Debug("Latest packet persisted",
		zap.String("key", s.key),
		zap.String("topic", packet.Topic),
	)
	return nil
}

// Read GET；键不存在返回 ErrNoPacket
func (s *RedisStore) Read(ctx context.Context) (*models.RawPacket, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoPacket
		}
		return nil, fmt.Errorf("failed to get %s: %w", s.key, err)
	}
	return DecodePacket(data)
}
