package models

// Snapshot 展示层每次轮询拿到的 (reading, alerts) 原子单元
type Snapshot struct {
	Reading *CanonicalReading `json:"reading"`
	Alerts  []Alert           `json:"alerts"`
}

// Waiting 尚未收到任何数据包
func (s *Snapshot) Waiting() bool {
	return s == nil || s.Reading == nil
}

// WaitingSnapshot 空快照（alerts 为非 nil 空切片，序列化为 []）
func WaitingSnapshot() *Snapshot {
	return &Snapshot{Reading: nil, Alerts: []Alert{}}
}
