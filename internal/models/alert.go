package models

// Severity 报警级别
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// AlertType 报警类型（同时决定展示顺序）
type AlertType string

const (
	AlertExtremeTemperature AlertType = "ExtremeTemperature"
	AlertHazardousSmoke     AlertType = "HazardousSmoke"
	AlertAbnormalHeartRate  AlertType = "AbnormalHeartRate"
	AlertImmobility         AlertType = "Immobility"
)

// Alert 报警
type Alert struct {
	Type     AlertType `json:"type"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}
