// Package device 定义实验仪器的能力接口。
// 不同厂商的仪器通过同一组接口被上层驱动；仪器不支持的方法
// 以显式空操作实现，而不是悄悄缺失，保证能力探测的一致性。
package device

import "context"

// Device 所有仪器共有的生命周期合同
type Device interface {
	// Name 配置的仪器名（日志/指标/API 的标识）
	Name() string
	// Simulation 是否以仿真模式构造
	Simulation() bool

	// Connect 打开物理连接
	Connect() error
	// Disconnect 关闭物理连接；之后须重新 Initialize 才能继续使用
	Disconnect() error
	// Initialize 上电初始化（协议握手/复位），连接失败返回 ConnectionError
	Initialize(ctx context.Context) error

	// IsConnected 活性探测：向仪器发一条状态类命令并检查应答。
	// 任何错误（含连接错误）都折算为 false，绝不上抛，可安全轮询。
	IsConnected(ctx context.Context) bool
	// IsIdle 仪器是否空闲。任何错误折算为 false。
	IsIdle(ctx context.Context) bool
	// Status 解码后的仪器状态文本；错误与未知状态码折算为 "ERROR"
	Status(ctx context.Context) string

	// CheckErrors 读取仪器内部错误；不支持的仪器为空操作
	CheckErrors(ctx context.Context) error
	// ClearErrors 清除仪器内部错误；不支持的仪器为空操作
	ClearErrors(ctx context.Context) error

	// Start 启动仪器的主要活动（加热搅拌器：加热+搅拌）
	Start(ctx context.Context) error
	// Stop 停止全部活动，回到空闲态
	Stop(ctx context.Context) error
}

// Hotplate 加热搅拌器能力接口。加热与搅拌是独立的两条轴，互不排斥。
type Hotplate interface {
	Device

	StartTemperatureRegulation(ctx context.Context) error
	StopTemperatureRegulation(ctx context.Context) error
	StartStirring(ctx context.Context) error
	StopStirring(ctx context.Context) error

	// SetTemperature 设定目标温度（°C）。sensor 选择设定点作用的探头，
	// 共享设定点的仪器忽略该参数。
	SetTemperature(ctx context.Context, temperature float64, sensor int) error
	// GetTemperature 读当前温度。sensor: 0=盘面，1=外部探头。
	GetTemperature(ctx context.Context, sensor int) (float64, error)
	GetTemperatureSetpoint(ctx context.Context, sensor int) (float64, error)
	// GetTemperatureSafetyDelta 安全温度与设定点的差值
	GetTemperatureSafetyDelta(ctx context.Context) (float64, error)

	SetSpeed(ctx context.Context, speed float64) error
	GetSpeed(ctx context.Context) (float64, error)
	GetSpeedSetpoint(ctx context.Context) (float64, error)

	// GetSensorType 当前温控使用的探头类型
	GetSensorType(ctx context.Context) (string, error)
	// SetResetMode 断电恢复行为：0 全部关闭，1 全部恢复
	SetResetMode(ctx context.Context, mode int) error
	GetResetMode(ctx context.Context) (string, error)
	// SetHeatMode 控温模式：0 精确，1 快速
	SetHeatMode(ctx context.Context, mode int) error
	GetHeatMode(ctx context.Context) (string, error)

	// Reset 复位仪器操作模式
	Reset(ctx context.Context) error
	// SetConnectionCheck 开/关仪器端的断线监测
	SetConnectionCheck(ctx context.Context, on bool) error
}
