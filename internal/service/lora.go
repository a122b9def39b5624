package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"wisefido-lora/internal/config"
	"wisefido-lora/internal/consumer"
	"wisefido-lora/internal/demo"
	"wisefido-lora/internal/forwarder"
	httpapi "wisefido-lora/internal/http"
	mqttcommon "wisefido-lora/internal/mqtt"
	"wisefido-lora/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LoraService LoRa 遥测服务
type LoraService struct {
	config    *config.Config
	logger    *zap.Logger
	db        *sql.DB
	redis     *redis.Client
	store     store.LatestPacketStore
	mirror    *forwarder.KafkaMirror
	recorder  *consumer.Recorder
	connector *consumer.Connector
	snapshots SnapshotSource
	server    *Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoraService 创建 LoRa 服务
func NewLoraService(cfg *config.Config, logger *zap.Logger) (*LoraService, error) {
	s := &LoraService{
		config: cfg,
		logger: logger,
	}

	if cfg.Lora.DataSource == config.DataSourceDemo {
		// 演示模式不连接任何后端
		s.snapshots = NewDemoProvider(demo.NewGenerator(time.Now().UnixNano()))
	} else {
		if err := s.initLive(); err != nil {
			s.closeBackends()
			return nil, err
		}
	}

	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoute()
	var recorder httpapi.PacketRecorder
	if s.recorder != nil {
		recorder = s.recorder
	}
	router.RegisterLoraRoutes(httpapi.NewLoraHandler(s.snapshots, recorder, logger))
	s.server = NewServer(cfg.HTTP.Addr, router, logger)

	return s, nil
}

func (s *LoraService) initLive() error {
	cfg := s.config

	packetStore, err := s.openStore()
	if err != nil {
		return err
	}
	s.store = packetStore

	var mirror consumer.Mirror
	if len(cfg.Kafka.Brokers) > 0 {
		s.mirror = forwarder.NewKafkaMirror(cfg.Kafka.Brokers, cfg.Kafka.Topic, s.logger)
		mirror = s.mirror
	}
	s.recorder = consumer.NewRecorder(packetStore, mirror, s.logger)
	s.snapshots = NewLiveProvider(packetStore, s.logger)

	switch {
	case cfg.Lora.Backend != config.BackendMQTT:
		s.logger.Info("MQTT connector disabled, expecting webhook uplinks",
			zap.String("backend", cfg.Lora.Backend))
	case !cfg.MQTT.Enabled():
		s.logger.Warn("MQTT_HOST not set, MQTT connector disabled")
	default:
		s.connector = consumer.NewConnector(
			consumer.ConnectorConfig{
				Topic:   cfg.MQTT.Topic,
				QoS:     cfg.MQTT.QoS,
				Backoff: cfg.Lora.ReconnectBackoff,
			},
			mqttcommon.NewDialer(&cfg.MQTT, s.logger),
			s.recorder,
			s.logger,
		)
	}
	return nil
}

// openStore 按配置选择存储后端
func (s *LoraService) openStore() (store.LatestPacketStore, error) {
	cfg := s.config

	switch cfg.Store.Backend {
	case config.StoreRedis:
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store.NewRedisStore(s.redis, cfg.Store.RedisKey, s.logger), nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.Database.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		s.db = db
		if cfg.Database.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.Database.MaxConns)
		}
		if cfg.Database.MaxIdle > 0 {
			db.SetMaxIdleConns(cfg.Database.MaxIdle)
		}
		pgStore := store.NewPostgresStore(db, s.logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
		return pgStore, nil

	default:
		fileStore, err := store.NewFileStore(cfg.Store.FilePath, s.logger)
		if err != nil {
			return nil, err
		}
		return fileStore, nil
	}
}

// Snapshots 当前快照来源
func (s *LoraService) Snapshots() SnapshotSource {
	return s.snapshots
}

// Connector 未启用时为 nil
func (s *LoraService) Connector() *consumer.Connector {
	return s.connector
}

// Addr HTTP 实际监听地址
func (s *LoraService) Addr() string {
	return s.server.Addr()
}

// Start 启动服务
func (s *LoraService) Start(ctx context.Context) error {
	s.logger.Info("Starting lora service components",
		zap.String("data_source", s.config.Lora.DataSource),
		zap.String("backend", s.config.Lora.Backend),
		zap.String("store", s.config.Store.Backend),
	)

	if err := s.server.Listen(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.HTTP.Addr, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(); err != nil {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	// 启动MQTT连接器
	if s.connector != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.connector.Run(ctx); err != nil {
				s.logger.Error("MQTT connector exited", zap.Error(err))
			}
		}()
	}

	s.logger.Info("Lora service started successfully", zap.String("addr", s.Addr()))
	return nil
}

// Stop 停止服务
func (s *LoraService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping lora service")

	if s.cancel != nil {
		s.cancel()
	}
	if err := s.server.Stop(ctx); err != nil {
		s.logger.Error("Error stopping HTTP server", zap.Error(err))
	}
	s.wg.Wait()

	s.closeBackends()

	s.logger.Info("Lora service stopped")
	return nil
}

func (s *LoraService) closeBackends() {
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			s.logger.Error("Error closing kafka mirror", zap.Error(err))
		}
		s.mirror = nil
	}
	if s.redis != nil {
		_ = s.redis.Close()
		s.redis = nil
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}
