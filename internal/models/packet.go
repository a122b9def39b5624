package models

import "time"

// RawPacket 一条入站消息对应的原始数据包（创建后不可修改）
type RawPacket struct {
	Topic      string    // 回调通道写入时为空
	Payload    Value     // 已解包的设备载荷
	ReceivedAt time.Time // 本地接收时间（不信任设备/网络时钟）
}
