package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-lora/internal/config"
	"wisefido-lora/internal/dashboard"
	"wisefido-lora/internal/logger"

	"go.uber.org/zap"
)

const clearScreen = "\033[H\033[2J"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 看板占用 stdout，日志固定 console 格式（输出到 stderr）
	zapLogger, err := logger.NewLogger(cfg.Log.Level, "console", "lora-watch")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	client := dashboard.NewSnapshotClient(cfg.Watch.APIURL, cfg.Watch.Refresh, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Watch.Refresh)
	defer ticker.Stop()

	for {
		// 每次刷新一个独立 ctx，下一次刷新到来时取消上一次
		tickCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			refresh(tickCtx, client, zapLogger)
		}()

		select {
		case <-ctx.Done():
			cancel()
			<-done
			return
		case <-ticker.C:
			cancel()
			<-done
		}
	}
}

func refresh(ctx context.Context, client *dashboard.SnapshotClient, logger *zap.Logger) {
	snapshot, err := client.FetchSnapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Failed to fetch snapshot", zap.Error(err))
		}
		return
	}
	fmt.Fprint(os.Stdout, clearScreen)
	if err := dashboard.Render(os.Stdout, snapshot); err != nil {
		logger.Error("Failed to render snapshot", zap.Error(err))
	}
}
