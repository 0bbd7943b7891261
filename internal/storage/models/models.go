package models

import "time"

// 注意：不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt。

// Instrument 映射 instruments 表：清单中出现过的仪器
type Instrument struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Name 仪器名，与清单一致
	Name string `gorm:"column:name;type:text;not null;uniqueIndex"`
	// Driver 驱动标识
	Driver string `gorm:"column:driver;type:text;not null"`
	// Simulation 是否仿真设备
	Simulation bool `gorm:"column:simulation;not null;default:false"`
	// LastSeenAt 最近一次成功轮询
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Instrument) TableName() string { return "instruments" }

// 读数类别
const (
	KindTemperature = "temperature"
	KindSpeed       = "speed"
)

// Reading 映射 readings 表：记录仪落库的单次读数
type Reading struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Device 仪器名
	Device string `gorm:"column:device;type:text;not null;index:idx_readings_device_kind"`
	// Kind 读数类别：temperature / speed
	Kind string `gorm:"column:kind;type:text;not null;index:idx_readings_device_kind"`
	// Sensor 温度读数的探头号（0 盘面 / 1 外部探头），转速恒为 0
	Sensor int32 `gorm:"column:sensor;not null;default:0"`
	// Value 读数值
	Value float64 `gorm:"column:value;not null"`
	// Status 读数时刻的仪器状态文本
	Status string `gorm:"column:status;type:text"`
	// TakenAt 读数时间
	TakenAt   time.Time `gorm:"column:taken_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Reading) TableName() string { return "readings" }
