package dashboard

import (
	"context"
	"fmt"
	"time"

	"wisefido-lora/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// snapshotResponse 快照接口的响应包
type snapshotResponse struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  models.Snapshot `json:"result"`
}

const resultSuccess = 2000

// SnapshotClient 快照接口客户端
type SnapshotClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewSnapshotClient 创建快照客户端
// 不做重试：下一次刷新即是重试。
func NewSnapshotClient(baseURL string, timeout time.Duration, logger *zap.Logger) *SnapshotClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &SnapshotClient{
		httpClient: client,
		logger:     logger,
	}
}

// FetchSnapshot 拉取一次快照
func (c *SnapshotClient) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var response snapshotResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&response).
		Get("/lora/api/v1/snapshot")
	if err != nil {
		return nil, fmt.Errorf("failed to call snapshot API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("snapshot API returned HTTP %d", resp.StatusCode())
	}
	if response.Code != resultSuccess {
		return nil, fmt.Errorf("snapshot API error: %s (code: %d)", response.Message, response.Code)
	}

	snapshot := response.Result
	if snapshot.Alerts == nil {
		snapshot.Alerts = []models.Alert{}
	}
	c.logger.Debug("Fetched snapshot",
		zap.Bool("waiting", snapshot.Waiting()),
		zap.Int("alerts", len(snapshot.Alerts)),
	)
	return &snapshot, nil
}
