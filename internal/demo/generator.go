package demo

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"wisefido-lora/internal/models"
)

// 演示基线：一名在现场的消防员
const (
	baseLat         = -2.1460
	baseLon         = -79.9640
	baseTemperature = 36.0
	baseSmoke       = 10
	baseHeartRate   = 80
	baseMovement    = 8
	baseBattery     = 90
)

// Generator 生成与 CanonicalReading 同形的演示读数，绕过 RawPacket 和标准化
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator 创建演示数据生成器；seed 固定时输出可复现
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Next 基线加少量随机抖动
func (g *Generator) Next() *models.CanonicalReading {
	g.mu.Lock()
	defer g.mu.Unlock()

	lat := baseLat + g.uniform(-0.0008, 0.0008)
	lon := baseLon + g.uniform(-0.0008, 0.0008)
	temperature := math.Round((baseTemperature+g.uniform(-1.5, 2.5))*10) / 10
	smoke := float64(clamp(baseSmoke+g.intRange(-5, 10), 0, 100))
	heartRate := clamp(baseHeartRate+g.intRange(-6, 8), 40, 190)
	movement := float64(clamp(baseMovement+g.intRange(-2, 2), 0, 10))
	battery := float64(clamp(baseBattery+g.intRange(-1, 0), 0, 100))

	return &models.CanonicalReading{
		Temperature: &temperature,
		HeartRate:   &heartRate,
		Smoke:       &smoke,
		Battery:     &battery,
		Movement:    &movement,
		Location:    &models.Location{Lat: lat, Lon: lon},
		Timestamp:   g.now(),
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// intRange 闭区间 [lo, hi]
func (g *Generator) intRange(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
