package evaluator

import "wisefido-lora/internal/models"

// 固定阈值
const (
	TemperatureDanger  = 50.0 // °C，>= 触发
	SmokeDanger        = 70.0 // >= 触发
	HeartRateHigh      = 150  // bpm，>= 触发
	HeartRateLow       = 40   // bpm，<= 触发
	MovementImmobility = 1.0  // <= 触发
)

// rule 一条报警规则；表中顺序即输出顺序
type rule struct {
	alertType models.AlertType
	severity  models.Severity
	message   string
	match     func(r *models.CanonicalReading) bool
}

var rules = []rule{
	{
		alertType: models.AlertExtremeTemperature,
		severity:  models.SeverityDanger,
		message:   "Extreme temperature",
		match: func(r *models.CanonicalReading) bool {
			return r.Temperature != nil && *r.Temperature >= TemperatureDanger
		},
	},
	{
		alertType: models.AlertHazardousSmoke,
		severity:  models.SeverityDanger,
		message:   "Hazardous smoke level",
		match: func(r *models.CanonicalReading) bool {
			return r.Smoke != nil && *r.Smoke >= SmokeDanger
		},
	},
	{
		alertType: models.AlertAbnormalHeartRate,
		severity:  models.SeverityWarning,
		message:   "Anomalous heart rate",
		match: func(r *models.CanonicalReading) bool {
			return r.HeartRate != nil && (*r.HeartRate >= HeartRateHigh || *r.HeartRate <= HeartRateLow)
		},
	},
	{
		alertType: models.AlertImmobility,
		severity:  models.SeverityWarning,
		message:   "Low movement - possible immobility",
		match: func(r *models.CanonicalReading) bool {
			return r.Movement != nil && *r.Movement <= MovementImmobility
		},
	},
}

// Evaluate 按固定优先级（温度 -> 烟雾 -> 心率 -> 静止）评估报警
// 纯函数，每次从当前读数重新计算；缺失字段不触发对应规则。返回值永不为 nil。
func Evaluate(reading *models.CanonicalReading) []models.Alert {
	alerts := []models.Alert{}
	if reading == nil {
		return alerts
	}
	for _, rl := range rules {
		if rl.match(reading) {
			alerts = append(alerts, models.Alert{
				Type:     rl.alertType,
				Message:  rl.message,
				Severity: rl.severity,
			})
		}
	}
	return alerts
}
