package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"wisefido-lora/internal/models"

	"go.uber.org/zap"
)

// FileStore 基于单个 JSON 文件的最新数据包存储
// 写入先落临时文件再 rename，其他进程的读者也不会看到半条记录。
type FileStore struct {
	path   string
	mu     sync.Mutex // 串行化写入
	logger *zap.Logger
}

// NewFileStore 创建文件存储（目录不存在时创建）
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path 存储文件位置
func (s *FileStore) Path() string { return s.path }

// Write 原子替换当前数据包
func (s *FileStore) Write(ctx context.Context, packet *models.RawPacket) error {
	data, err := EncodePacket(packet)
	if err != nil {
		return fmt.Errorf("failed to encode packet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace store file: %w", err)
	}

	s.logger.Debug("Latest packet persisted",
		zap.String("path", s.path),
		zap.String("topic", packet.Topic),
		zap.Int("size", len(data)),
	)
	return nil
}

// Read 读取当前数据包；文件不存在返回 ErrNoPacket
func (s *FileStore) Read(ctx context.Context) (*models.RawPacket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoPacket
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	return DecodePacket(data)
}
