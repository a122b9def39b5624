package models

import "time"

// Location GPS 坐标
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CanonicalReading 标准化后的传感器读数
// 除 Timestamp 外所有字段均可缺失（nil）。
type CanonicalReading struct {
	Temperature      *float64  `json:"temperature,omitempty"` // °C
	HeartRate        *int      `json:"heart_rate,omitempty"`  // bpm
	Smoke            *float64  `json:"smoke,omitempty"`       // 0-100
	Battery          *float64  `json:"battery,omitempty"`     // 0-100 %
	Movement         *float64  `json:"movement,omitempty"`
	Location         *Location `json:"location,omitempty"`
	HeartRateHistory []int     `json:"heart_rate_history,omitempty"`
	RawResidue       *Value    `json:"raw_residue,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Recognized 是否至少识别出一个标准字段
func (r *CanonicalReading) Recognized() bool {
	return r.Temperature != nil ||
		r.HeartRate != nil ||
		r.Smoke != nil ||
		r.Battery != nil ||
		r.Movement != nil ||
		r.Location != nil ||
		len(r.HeartRateHistory) > 0
}
