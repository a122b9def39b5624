package normalizer

import (
	"math"
	"time"

	"wisefido-lora/internal/models"
)

// fieldRule 一个标准字段：按顺序尝试的源键同义词 + 强转赋值函数
// 第一个出现的同义词即为匹配，后面的同义词不再看；assign 返回 false 时该字段缺失。
// populated 为 true 时只有非空值才算出现（历史序列）。
type fieldRule struct {
	field     string
	synonyms  []string
	populated bool
	assign    func(r *models.CanonicalReading, v models.Value) bool
}

// 新设备词汇只需在此追加同义词
var fieldRules = []fieldRule{
	{field: "temperature", synonyms: []string{"temperature", "temp", "t"}, assign: assignFloat(func(r *models.CanonicalReading, f *float64) { r.Temperature = f })},
	{field: "heart_rate", synonyms: []string{"heart_rate", "hr", "pulse"}, assign: assignHeartRate},
	{field: "smoke", synonyms: []string{"smoke", "co", "gas", "air_quality"}, assign: assignFloat(func(r *models.CanonicalReading, f *float64) { r.Smoke = f })},
	{field: "battery", synonyms: []string{"battery"}, assign: assignFloat(func(r *models.CanonicalReading, f *float64) { r.Battery = f })},
	{field: "movement", synonyms: []string{"movement", "motion", "accel_mag"}, assign: assignFloat(func(r *models.CanonicalReading, f *float64) { r.Movement = f })},
	{field: "heart_rate_history", synonyms: []string{"hr_values", "heart_history", "hr_series"}, populated: true, assign: assignHistory},
}

// 心率取整的合法范围，超出视为无法强转
const (
	minBeats = math.MinInt32
	maxBeats = math.MaxInt32
)

var locationNests = []string{"gps", "location"}

// Normalize 把任意载荷映射为标准读数
// 纯函数：无副作用，同样输入得到同样输出，永不失败。
// 每个字段取第一个出现的同义词（first-match-wins，不合并），无法强转则该字段缺失；
// 一个字段都没识别出时 RawResidue 保存完整原始载荷。
func Normalize(payload models.Value, at time.Time) *models.CanonicalReading {
	reading := &models.CanonicalReading{Timestamp: at}

	if payload.Kind() == models.KindObject {
		for _, rule := range fieldRules {
			if v, ok := firstSynonym(payload, rule); ok {
				rule.assign(reading, v)
			}
		}
		reading.Location = resolveLocation(payload)
	}

	if !reading.Recognized() {
		residue := payload
		reading.RawResidue = &residue
	}
	return reading
}

func firstSynonym(payload models.Value, rule fieldRule) (models.Value, bool) {
	for _, key := range rule.synonyms {
		v, ok := payload.Get(key)
		if !ok || (rule.populated && !v.Truthy()) {
			continue
		}
		return v, true
	}
	return models.Value{}, false
}

func assignFloat(set func(*models.CanonicalReading, *float64)) func(*models.CanonicalReading, models.Value) bool {
	return func(r *models.CanonicalReading, v models.Value) bool {
		f, ok := v.AsNumber()
		if !ok {
			return false
		}
		set(r, &f)
		return true
	}
}

func assignHeartRate(r *models.CanonicalReading, v models.Value) bool {
	hr, ok := asBeats(v)
	if !ok {
		return false
	}
	r.HeartRate = &hr
	return true
}

// asBeats 截断取整；超出 int32 范围视为无法强转
func asBeats(v models.Value) (int, bool) {
	f, ok := v.AsNumber()
	if !ok || f < minBeats || f > maxBeats {
		return 0, false
	}
	return int(f), true
}

// assignHistory 必须是数组；无法强转的元素跳过，一个都不剩时缺失
func assignHistory(r *models.CanonicalReading, v models.Value) bool {
	items := v.Items()
	series := make([]int, 0, len(items))
	for _, item := range items {
		if hr, ok := asBeats(item); ok {
			series = append(series, hr)
		}
	}
	if len(series) == 0 {
		return false
	}
	r.HeartRateHistory = series
	return true
}

// resolveLocation 两级定位解析
// 顶层同时有可强转的 lat/lon 时直接使用；否则取 gps/location 中第一个非空值，
// 它不是对象时没有定位；缺失或无法强转的子字段按 0 处理。
func resolveLocation(payload models.Value) *models.Location {
	latV, hasLat := payload.Get("lat")
	lonV, hasLon := payload.Get("lon")
	if hasLat && hasLon {
		lat, okLat := latV.AsNumber()
		lon, okLon := lonV.AsNumber()
		if okLat && okLon {
			return &models.Location{Lat: lat, Lon: lon}
		}
	}

	for _, key := range locationNests {
		nested, ok := payload.Get(key)
		if !ok || !nested.Truthy() {
			continue
		}
		if nested.Kind() != models.KindObject {
			return nil
		}
		return &models.Location{
			Lat: numberOrZero(nested, "lat"),
			Lon: numberOrZero(nested, "lon"),
		}
	}
	return nil
}

func numberOrZero(obj models.Value, key string) float64 {
	v, ok := obj.Get(key)
	if !ok {
		return 0
	}
	f, ok := v.AsNumber()
	if !ok {
		return 0
	}
	return f
}
