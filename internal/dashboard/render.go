package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"wisefido-lora/internal/models"
)

const (
	seriesLength     = 30
	defaultHeartRate = 80
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// HeartSeries 心率曲线：设备上报的历史优先，否则用当前值（缺省 80）重复 30 次
func HeartSeries(reading *models.CanonicalReading) []int {
	if reading != nil && len(reading.HeartRateHistory) > 0 {
		return append([]int(nil), reading.HeartRateHistory...)
	}
	hr := defaultHeartRate
	if reading != nil && reading.HeartRate != nil {
		hr = *reading.HeartRate
	}
	series := make([]int, seriesLength)
	for i := range series {
		series[i] = hr
	}
	return series
}

// Sparkline 把序列画成一行块字符
// 刻度按 float64 计算并夹在 [0, len(sparkTicks)-1]，任意 int 取值都不会越界。
func Sparkline(series []int) string {
	if len(series) == 0 {
		return ""
	}
	lo, hi := series[0], series[0]
	for _, v := range series {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := float64(hi) - float64(lo)
	top := len(sparkTicks) - 1

	var b strings.Builder
	for _, v := range series {
		idx := 0
		if span > 0 {
			idx = int((float64(v) - float64(lo)) / span * float64(top))
			idx = max(0, min(idx, top))
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}

// Render 输出一屏文本看板
func Render(w io.Writer, snapshot *models.Snapshot) error {
	var b strings.Builder

	b.WriteString("LoRa Firefighter Band Monitor\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")

	if snapshot.Waiting() {
		b.WriteString("No LoRaWAN packets received yet. Waiting for connection...\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	reading := snapshot.Reading

	fmt.Fprintf(&b, "Temperature (°C)   %s\n", formatFloat(reading.Temperature))
	fmt.Fprintf(&b, "Smoke / Air        %s\n", formatFloat(reading.Smoke))
	fmt.Fprintf(&b, "Heart rate (bpm)   %s\n", formatInt(reading.HeartRate))
	fmt.Fprintf(&b, "Battery (%%)        %s\n", formatFloat(reading.Battery))
	fmt.Fprintf(&b, "Received at        %s\n", reading.Timestamp.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("\nLocation\n")
	if reading.Location != nil {
		fmt.Fprintf(&b, "  lat %.6f  lon %.6f\n", reading.Location.Lat, reading.Location.Lon)
	} else {
		b.WriteString("  GPS not available in the current packet\n")
	}

	b.WriteString("\nAlerts\n")
	if len(snapshot.Alerts) == 0 {
		b.WriteString("  [ok] normal\n")
	}
	for _, alert := range snapshot.Alerts {
		fmt.Fprintf(&b, "  [%s] %s\n", alert.Severity, alert.Message)
	}

	series := HeartSeries(reading)
	b.WriteString("\nHeart rate\n")
	fmt.Fprintf(&b, "  %s  (%d samples)\n", Sparkline(series), len(series))

	if reading.RawResidue != nil {
		raw, err := json.MarshalIndent(reading.RawResidue.Interface(), "  ", "  ")
		if err != nil {
			return fmt.Errorf("failed to render raw packet: %w", err)
		}
		b.WriteString("\nLast packet (raw)\n  ")
		b.Write(raw)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatFloat(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%g", *v)
}

func formatInt(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
