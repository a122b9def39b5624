package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wisefido-lora/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Lora.Backend = config.BackendWebhook
	cfg.Lora.DataSource = config.DataSourceLive
	cfg.Lora.ReconnectBackoff = time.Second
	cfg.Store.Backend = config.StoreFile
	cfg.Store.FilePath = filepath.Join(t.TempDir(), "data", "last_lora.json")
	cfg.Store.RedisKey = "lora:last_packet"
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func startService(t *testing.T, cfg *config.Config) *LoraService {
	t.Helper()
	svc, err := NewLoraService(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc
}

type envelope struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  struct {
		Reading map[string]any   `json:"reading"`
		Alerts  []map[string]any `json:"alerts"`
	} `json:"result"`
}

func getSnapshot(t *testing.T, svc *LoraService) envelope {
	t.Helper()
	resp, err := http.Get("http://" + svc.Addr() + "/lora/api/v1/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env envelope
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func postUplink(t *testing.T, svc *LoraService, body string) {
	t.Helper()
	resp, err := http.Post("http://"+svc.Addr()+"/lora/api/v1/uplink", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoraService_WebhookToSnapshot_FileStore(t *testing.T) {
	svc := startService(t, testConfig(t))
	assert.Nil(t, svc.Connector())

	env := getSnapshot(t, svc)
	assert.Equal(t, "warning", env.Type)
	assert.Nil(t, env.Result.Reading)
	assert.Empty(t, env.Result.Alerts)

	postUplink(t, svc, `{"temp": 55, "hr": 90}`)

	env = getSnapshot(t, svc)
	assert.Equal(t, "success", env.Type)
	assert.Equal(t, 55.0, env.Result.Reading["temperature"])
	require.Len(t, env.Result.Alerts, 1)
	assert.Equal(t, "ExtremeTemperature", env.Result.Alerts[0]["type"])
}

func TestLoraService_RedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.Store.Backend = config.StoreRedis
	cfg.Redis.Addr = mr.Addr()
	svc := startService(t, cfg)

	postUplink(t, svc, `{"movement": 0}`)
	assert.True(t, mr.Exists("lora:last_packet"))

	env := getSnapshot(t, svc)
	require.Len(t, env.Result.Alerts, 1)
	assert.Equal(t, "Immobility", env.Result.Alerts[0]["type"])
}

func TestLoraService_RedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Store.Backend = config.StoreRedis
	cfg.Redis.Addr = addr

	_, err = NewLoraService(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestLoraService_DemoMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lora.DataSource = config.DataSourceDemo
	svc := startService(t, cfg)

	env := getSnapshot(t, svc)
	assert.Equal(t, "success", env.Type)
	assert.NotNil(t, env.Result.Reading["heart_rate"])

	resp, err := http.Post("http://"+svc.Addr()+"/lora/api/v1/uplink", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLoraService_ConnectorWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lora.Backend = config.BackendMQTT

	svc, err := NewLoraService(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, svc.Connector(), "no MQTT_HOST means no connector")

	cfg.MQTT.Host = "broker.invalid"
	cfg.MQTT.Port = 1883
	cfg.MQTT.Topic = "#"
	svc, err = NewLoraService(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, svc.Connector())
}

func TestLoraService_Health(t *testing.T) {
	svc := startService(t, testConfig(t))

	resp, err := http.Get("http://" + svc.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
