package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-lora/internal/models"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore 基于单行表的最新数据包存储
// 表 lora_latest_packet 只允许 slot = 1 这一行，写入为 upsert。
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore 创建 PostgreSQL 存储
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema 建表（幂等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS lora_latest_packet (
			slot        SMALLINT PRIMARY KEY DEFAULT 1 CHECK (slot = 1),
			topic       TEXT,
			payload     JSONB NOT NULL,
			received_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create lora_latest_packet: %w", err)
	}
	return nil
}

// Write upsert 唯一一行
func (s *PostgresStore) Write(ctx context.Context, packet *models.RawPacket) error {
	if packet == nil {
		return fmt.Errorf("nil packet")
	}
	payload, err := packet.Payload.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO lora_latest_packet (slot, topic, payload, received_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET
			topic = EXCLUDED.topic,
			payload = EXCLUDED.payload,
			received_at = EXCLUDED.received_at
	`
	topic := sql.NullString{String: packet.Topic, Valid: packet.Topic != ""}
	if _, err := s.db.ExecContext(ctx, query, topic, string(payload), packet.ReceivedAt.UTC()); err != nil {
		return fmt.Errorf("failed to upsert latest packet: %w", err)
	}

	s.logger.Debug("Latest packet persisted",
		zap.String("table", "lora_latest_packet"),
		zap.String("topic", packet.Topic),
	)
	return nil
}

// Read 读取唯一一行；没有行返回 ErrNoPacket
func (s *PostgresStore) Read(ctx context.Context) (*models.RawPacket, error) {
	query := `
		SELECT topic, payload, received_at
		FROM lora_latest_packet
		WHERE slot = 1
	`

	var (
		topic      sql.NullString
		payload    []byte
		receivedAt time.Time
	)
	err := s.db.QueryRowContext(ctx, query).Scan(&topic, &payload, &receivedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoPacket
		}
		return nil, fmt.Errorf("failed to query latest packet: %w", err)
	}

	value, err := models.ParseJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPacket, err)
	}

	return &models.RawPacket{
		Topic:      topic.String,
		Payload:    value,
		ReceivedAt: receivedAt.UTC(),
	}, nil
}
