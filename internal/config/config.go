package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMQTT    = "mqtt"
	BackendWebhook = "webhook"

	DataSourceLive = "live"
	DataSourceDemo = "demo"

	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Topic          string
	ClientID       string
	QoS            byte
	TLS            bool
	ConnectTimeout time.Duration
}

// Enabled 未配置 Host 时连接器整体关闭（不是错误）
func (c *MQTTConfig) Enabled() bool {
	return c.Host != ""
}

// BrokerURL 组装 paho 使用的 broker 地址
func (c *MQTTConfig) BrokerURL() string {
	scheme := "tcp"
	if c.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, c.Port)
}

// Config LoRa 遥测服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// LoRa 服务特定配置
	Lora struct {
		Backend          string        // mqtt | webhook
		DataSource       string        // live | demo
		ReconnectBackoff time.Duration // 断线后固定重连间隔
	}

	Store struct {
		Backend  string // file | redis | postgres
		FilePath string // 文件后端路径，如 "data/last_lora.json"
		RedisKey string // Redis 后端键
	}

	Kafka struct {
		Brokers []string // 为空时不启用镜像
		Topic   string
	}

	HTTP struct {
		Addr string
	}

	// lora-watch 终端展示配置
	Watch struct {
		APIURL  string
		Refresh time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	if cfg.Database.Port, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "wisefido")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = 4
	cfg.Database.MaxIdle = 2

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.MQTT.Host = getEnv("MQTT_HOST", "")
	if cfg.MQTT.Port, err = getEnvInt("MQTT_PORT", 1883); err != nil {
		return nil, err
	}
	cfg.MQTT.Username = getEnv("MQTT_USER", "")
	cfg.MQTT.Password = getEnv("MQTT_PASS", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "#") // 默认订阅全部
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "")
	qos, err := getEnvInt("MQTT_QOS", 0)
	if err != nil {
		return nil, err
	}
	if qos < 0 || qos > 2 {
		return nil, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", qos)
	}
	cfg.MQTT.QoS = byte(qos)
	if cfg.MQTT.TLS, err = getEnvBool("MQTT_TLS", false); err != nil {
		return nil, err
	}
	if cfg.MQTT.ConnectTimeout, err = getEnvDuration("MQTT_CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.Lora.Backend = strings.ToLower(getEnv("LORA_BACKEND", BackendMQTT))
	if cfg.Lora.Backend != BackendMQTT && cfg.Lora.Backend != BackendWebhook {
		return nil, fmt.Errorf("unknown LORA_BACKEND %q", cfg.Lora.Backend)
	}
	cfg.Lora.DataSource = strings.ToLower(getEnv("LORA_DATA_SOURCE", DataSourceLive))
	if cfg.Lora.DataSource != DataSourceLive && cfg.Lora.DataSource != DataSourceDemo {
		return nil, fmt.Errorf("unknown LORA_DATA_SOURCE %q", cfg.Lora.DataSource)
	}
	if cfg.Lora.ReconnectBackoff, err = getEnvDuration("MQTT_RECONNECT_BACKOFF", 5*time.Second); err != nil {
		return nil, err
	}

	cfg.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", StoreFile))
	switch cfg.Store.Backend {
	case StoreFile, StoreRedis, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.Store.Backend)
	}
	cfg.Store.FilePath = getEnv("STORE_FILE_PATH", "data/last_lora.json")
	cfg.Store.RedisKey = getEnv("STORE_REDIS_KEY", "lora:last_packet")

	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "lora.uplinks")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Watch.APIURL = getEnv("WATCH_API_URL", "http://localhost:8080")
	if cfg.Watch.Refresh, err = getEnvDuration("WATCH_REFRESH", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Watch.Refresh < time.Second || cfg.Watch.Refresh > 10*time.Second {
		return nil, fmt.Errorf("WATCH_REFRESH must be between 1s and 10s, got %s", cfg.Watch.Refresh)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration 支持 "5s" 形式，也接受纯数字（秒）
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
