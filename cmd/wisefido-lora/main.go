package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-lora/internal/config"
	"wisefido-lora/internal/logger"
	"wisefido-lora/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-lora")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting wisefido-lora service",
		zap.String("data_source", cfg.Lora.DataSource),
		zap.String("backend", cfg.Lora.Backend),
		zap.String("mqtt_host", cfg.MQTT.Host),
		zap.String("store", cfg.Store.Backend),
		zap.String("http_addr", cfg.HTTP.Addr),
	)

	// 创建服务
	loraService, err := service.NewLoraService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create lora service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loraService.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start lora service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := loraService.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
