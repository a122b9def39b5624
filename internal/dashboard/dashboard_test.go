package dashboard

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"wisefido-lora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptrFloat(f float64) *float64 { return &f }
func ptrInt(i int) *int { return &i }

func snapshotServer(t *testing.T, status int, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lora/api/v1/snapshot", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSnapshot_Reading(t *testing.T) {
	srv := snapshotServer(t, http.StatusOK, `{
		"code": 2000, "type": "success", "message": "ok",
		"result": {
			"reading": {"temperature": 55, "heart_rate": 90, "timestamp": "2026-10-18T12:00:00Z"},
			"alerts": [{"type": "ExtremeTemperature", "message": "Extreme temperature", "severity": "danger"}]
		}
	}`)
	client := NewSnapshotClient(srv.URL, time.Second, zap.NewNop())

	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.False(t, snap.Waiting())
	assert.Equal(t, 55.0, *snap.Reading.Temperature)
	assert.Equal(t, 90, *snap.Reading.HeartRate)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, models.SeverityDanger, snap.Alerts[0].Severity)
}

func TestFetchSnapshot_Waiting(t *testing.T) {
	srv := snapshotServer(t, http.StatusOK, `{
		"code": 2000, "type": "warning", "message": "waiting for first packet",
		"result": {"reading": null, "alerts": []}
	}`)
	client := NewSnapshotClient(srv.URL, time.Second, zap.NewNop())

	snap, err := client.FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Waiting())
	assert.NotNil(t, snap.Alerts)
}

func TestFetchSnapshot_Errors(t *testing.T) {
	srv := snapshotServer(t, http.StatusInternalServerError, `{"code": -1, "type": "error", "message": "boom"}`)
	_, err := NewSnapshotClient(srv.URL, time.Second, zap.NewNop()).FetchSnapshot(context.Background())
	assert.Error(t, err)

	srv = snapshotServer(t, http.StatusOK, `{"code": -1, "type": "error", "message": "boom", "result": null}`)
	_, err = NewSnapshotClient(srv.URL, time.Second, zap.NewNop()).FetchSnapshot(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestFetchSnapshot_ContextCancelled(t *testing.T) {
	srv := snapshotServer(t, http.StatusOK, `{"code": 2000}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSnapshotClient(srv.URL, time.Second, zap.NewNop()).FetchSnapshot(ctx)
	assert.Error(t, err)
}

func TestHeartSeries(t *testing.T) {
	series := HeartSeries(&models.CanonicalReading{HeartRateHistory: []int{70, 72}, HeartRate: ptrInt(99)})
	assert.Equal(t, []int{70, 72}, series)

	series = HeartSeries(&models.CanonicalReading{HeartRate: ptrInt(101)})
	require.Len(t, series, 30)
	assert.Equal(t, 101, series[0])
	assert.Equal(t, 101, series[29])

	series = HeartSeries(&models.CanonicalReading{})
	require.Len(t, series, 30)
	assert.Equal(t, 80, series[15])
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "▁▁▁", Sparkline([]int{5, 5, 5}))
	assert.Equal(t, "▁█", Sparkline([]int{60, 120}))
	assert.Equal(t, "▁▄█", Sparkline([]int{0, 50, 100}))
}

func TestSparkline_ExtremeValues(t *testing.T) {
	cases := [][]int{
		{0, 2e18},
		{math.MinInt64, math.MaxInt64},
		{math.MaxInt64, 0, math.MinInt64},
		{math.MinInt64, math.MinInt64 + 1},
	}
	for _, series := range cases {
		var line string
		require.NotPanics(t, func() { line = Sparkline(series) })
		assert.Equal(t, len(series), utf8.RuneCountInString(line))
	}
	assert.Equal(t, "▁█", Sparkline([]int{math.MinInt64, math.MaxInt64}))
}

func TestRender_DeviceHistoryWithHugeValues(t *testing.T) {
	snap := &models.Snapshot{
		Reading: &models.CanonicalReading{
			HeartRate:        ptrInt(90),
			HeartRateHistory: []int{0, 2e18},
		},
		Alerts: []models.Alert{},
	}

	var buf bytes.Buffer
	require.NotPanics(t, func() { require.NoError(t, Render(&buf, snap)) })
	assert.Contains(t, buf.String(), "(2 samples)")
}

func TestRender_Waiting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, models.WaitingSnapshot()))
	assert.Contains(t, buf.String(), "Waiting for connection")
	assert.NotContains(t, buf.String(), "Alerts")
}

func TestRender_Reading(t *testing.T) {
	snap := &models.Snapshot{
		Reading: &models.CanonicalReading{
			Temperature: ptrFloat(55),
			HeartRate:   ptrInt(90),
			Smoke:       ptrFloat(12.5),
			Timestamp:   time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		},
		Alerts: []models.Alert{{Type: models.AlertExtremeTemperature, Message: "Extreme temperature", Severity: models.SeverityDanger}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, snap))
	out := buf.String()
	assert.Contains(t, out, "Temperature (°C)   55")
	assert.Contains(t, out, "Smoke / Air        12.5")
	assert.Contains(t, out, "Battery (%)        n/a")
	assert.Contains(t, out, "GPS not available")
	assert.Contains(t, out, "[danger] Extreme temperature")
	assert.Contains(t, out, "(30 samples)")
	assert.NotContains(t, out, "Last packet (raw)")
}

func TestRender_NormalWithLocationAndResidue(t *testing.T) {
	residue := models.Object(map[string]models.Value{"foo": models.String("bar")})
	snap := &models.Snapshot{
		Reading: &models.CanonicalReading{
			Location:   &models.Location{Lat: 1, Lon: 2},
			RawResidue: &residue,
		},
		Alerts: []models.Alert{},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, snap))
	out := buf.String()
	assert.Contains(t, out, "lat 1.000000  lon 2.000000")
	assert.Contains(t, out, "[ok] normal")
	assert.Contains(t, out, "Last packet (raw)")
	assert.Contains(t, out, `"foo": "bar"`)
}
