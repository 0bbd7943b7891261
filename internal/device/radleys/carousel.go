package radleys

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/labforge/labdevice-server/internal/device"
	"github.com/labforge/labdevice-server/internal/metrics"
	"github.com/labforge/labdevice-server/internal/protocol/labline"
)

// Config Carousel 构造参数
type Config struct {
	// Name 仪器名（日志/指标标识）
	Name string
	// Simulation 仿真模式：不触碰传输层
	Simulation bool
	// MinCommandInterval 相邻命令最小间隔
	MinCommandInterval time.Duration

	Logger  *zap.Logger
	Metrics *metrics.InstrumentMetrics
}

// Carousel Radleys Carousel Connect 的设备门面。
// 全部操作经由同一个 labline.Dispatcher 走串口，本身不持有任何
// 缓存读数；除命令表引用与帧常量外没有其他持久状态。
type Carousel struct {
	name string
	sim  bool
	conn labline.Transport
	disp *labline.Dispatcher
	log  *zap.Logger
}

var _ device.Hotplate = (*Carousel)(nil)

// New 创建 Carousel 门面。conn 由调用方构造并独占给本设备。
func New(conn labline.Transport, cfg Config) *Carousel {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	disp := labline.NewDispatcher(conn, labline.DispatcherConfig{
		Device:      cfg.Name,
		Framing:     framing,
		MinInterval: cfg.MinCommandInterval,
		Simulation:  cfg.Simulation,
		Logger:      log,
		Metrics:     cfg.Metrics,
	})
	return &Carousel{
		name: cfg.Name,
		sim:  cfg.Simulation,
		conn: conn,
		disp: disp,
		log:  log,
	}
}

// Name 配置的仪器名
func (c *Carousel) Name() string { return c.name }

// Simulation 是否仿真模式
func (c *Carousel) Simulation() bool { return c.sim }

// Connect 打开串口。仿真模式下为空操作。
func (c *Carousel) Connect() error {
	if c.sim {
		return nil
	}
	if err := c.conn.Open(); err != nil {
		return &labline.ConnectionError{Op: "open", Err: err}
	}
	return nil
}

// Disconnect 关闭串口，之后须重新 Initialize
func (c *Carousel) Disconnect() error {
	if c.sim {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return &labline.ConnectionError{Op: "close", Err: err}
	}
	return nil
}

// Initialize 打开连接并发送「启用新协议」握手。
// 任何失败都让仪器停留在未初始化态并返回 ConnectionError。
func (c *Carousel) Initialize(ctx context.Context) error {
	if err := c.Connect(); err != nil {
		return err
	}
	if _, err := c.disp.Send(ctx, cmdProtocolNew, nil); err != nil {
		return err
	}
	c.log.Info("device initialised", zap.String("device", c.name))
	return nil
}

// status 读原始状态码
func (c *Carousel) status(ctx context.Context) (int, error) {
	v, err := c.disp.Send(ctx, cmdQueryStatus, nil)
	if err != nil {
		return 0, err
	}
	return v.Int, nil
}

// IsConnected 活性探测，不是纯连通性检查：
// 状态码 -1（远程被锁）与 -1 以下的错误码都计为不可达；
// ConnectionError 折算为 false，绝不上抛。仿真模式恒为 true。
func (c *Carousel) IsConnected(ctx context.Context) bool {
	ok, _ := device.InSimulation(c.sim, true, func() (bool, error) {
		code, err := c.status(ctx)
		if err != nil {
			if labline.IsConnectionError(err) {
				return false, nil
			}
			c.log.Warn("liveness probe failed", zap.String("device", c.name), zap.Error(err))
			return false, nil
		}
		switch {
		case code == -1:
			c.log.Error("device connection blocked", zap.String("device", c.name))
			return false, nil
		case code < -1:
			c.log.Error("device reports error status", zap.String("device", c.name), zap.Int("code", code))
			return false, nil
		}
		return true, nil
	})
	return ok
}

// IsIdle 仅当状态码等于「远程启动」时为真；其余状态与一切错误均为 false
func (c *Carousel) IsIdle(ctx context.Context) bool {
	code, err := c.status(ctx)
	if err != nil {
		return false
	}
	return code == statusRemoteStart
}

// Status 解码后的状态文本。状态码须落在 (-2, 3) 开区间内，
// 区间外（含 -2 本身）一律返回 "ERROR"；任何错误同样返回 "ERROR"，
// 本方法设计为无抛错，调用方可以放心循环轮询。
func (c *Carousel) Status(ctx context.Context) string {
	code, err := c.status(ctx)
	if err != nil {
		c.log.Warn("status query failed", zap.String("device", c.name), zap.Error(err))
		return "ERROR"
	}
	if 3 > code && code > -2 {
		return StatusText[code]
	}
	return "ERROR"
}

// CheckErrors 本仪器不支持错误查询，显式空操作以满足共享设备接口
func (c *Carousel) CheckErrors(ctx context.Context) error { return nil }

// ClearErrors 本仪器不支持错误清除，显式空操作
func (c *Carousel) ClearErrors(ctx context.Context) error { return nil }

// Start 启动加热与搅拌
func (c *Carousel) Start(ctx context.Context) error {
	if err := c.StartTemperatureRegulation(ctx); err != nil {
		return err
	}
	return c.StartStirring(ctx)
}

// Stop 停止加热与搅拌
func (c *Carousel) Stop(ctx context.Context) error {
	if err := c.StopTemperatureRegulation(ctx); err != nil {
		return err
	}
	return c.StopStirring(ctx)
}

// StartTemperatureRegulation 开始加热。不等待到温，调用方自行轮询温度。
func (c *Carousel) StartTemperatureRegulation(ctx context.Context) error {
	if _, err := c.disp.Send(ctx, cmdStartHeat, nil); err != nil {
		return err
	}
	c.log.Info("started heating", zap.String("device", c.name))
	return nil
}

// StopTemperatureRegulation 停止加热
func (c *Carousel) StopTemperatureRegulation(ctx context.Context) error {
	_, err := c.disp.Send(ctx, cmdStopHeat, nil)
	return err
}

// StartStirring 开始搅拌
func (c *Carousel) StartStirring(ctx context.Context) error {
	if _, err := c.disp.Send(ctx, cmdStartStir, nil); err != nil {
		return err
	}
	c.log.Info("started stirring", zap.String("device", c.name))
	return nil
}

// StopStirring 停止搅拌
func (c *Carousel) StopStirring(ctx context.Context) error {
	if _, err := c.disp.Send(ctx, cmdStopStir, nil); err != nil {
		return err
	}
	c.log.Info("stopped stirring", zap.String("device", c.name))
	return nil
}

// SetTemperature 设定目标温度。本仪器各探头共享设定点，sensor 无效果。
func (c *Carousel) SetTemperature(ctx context.Context, temperature float64, sensor int) error {
	_, err := c.disp.Send(ctx, cmdSetTemp, int(temperature))
	return err
}

// GetTemperature 读当前温度：0=盘面传感器，1=外部探头，其余非法
func (c *Carousel) GetTemperature(ctx context.Context, sensor int) (float64, error) {
	switch sensor {
	case 0:
		return c.sendFloat(ctx, cmdGetHotplateTemp)
	case 1:
		return c.sendFloat(ctx, cmdGetProbeTemp)
	default:
		return 0, &labline.InvalidArgumentError{
			Cmd:    "get temperature",
			Reason: fmt.Sprintf("invalid sensor %d: use 0 for hotplate or 1 for external probe", sensor),
		}
	}
}

// GetTemperatureSetpoint 读共享温度设定点，sensor 无效果
func (c *Carousel) GetTemperatureSetpoint(ctx context.Context, sensor int) (float64, error) {
	return c.sendFloat(ctx, cmdGetSetTemp)
}

// GetTemperatureSafetyDelta 读安全温度差值
func (c *Carousel) GetTemperatureSafetyDelta(ctx context.Context) (float64, error) {
	return c.sendFloat(ctx, cmdGetSafetyDelta)
}

// SetSpeed 设定搅拌转速
func (c *Carousel) SetSpeed(ctx context.Context, speed float64) error {
	_, err := c.disp.Send(ctx, cmdSetSpeed, speed)
	return err
}

// GetSpeed 读当前搅拌转速
func (c *Carousel) GetSpeed(ctx context.Context) (float64, error) {
	return c.sendFloat(ctx, cmdGetStirSpeed)
}

// GetSpeedSetpoint 读转速设定点
func (c *Carousel) GetSpeedSetpoint(ctx context.Context) (float64, error) {
	return c.sendFloat(ctx, cmdGetSetSpeed)
}

// GetSensorType 当前温控探头类型
func (c *Carousel) GetSensorType(ctx context.Context) (string, error) {
	v, err := c.disp.Send(ctx, cmdQuerySensorType, nil)
	if err != nil {
		return "", err
	}
	if v.Int == 0 {
		return "HOTPLATE (0)", nil
	}
	return "PROBE (1)", nil
}

// SetResetMode 断电恢复模式：0 全部关闭，1 全部恢复
func (c *Carousel) SetResetMode(ctx context.Context, mode int) error {
	_, err := c.disp.Send(ctx, cmdSetResetMode, mode)
	return err
}

// GetResetMode 读断电恢复模式
func (c *Carousel) GetResetMode(ctx context.Context) (string, error) {
	return c.modeText(ctx, cmdQueryResetMode, ResetModes)
}

// SetHeatMode 控温模式：0 精确，1 快速
func (c *Carousel) SetHeatMode(ctx context.Context, mode int) error {
	_, err := c.disp.Send(ctx, cmdSetHeatMode, mode)
	return err
}

// GetHeatMode 读控温模式
func (c *Carousel) GetHeatMode(ctx context.Context) (string, error) {
	return c.modeText(ctx, cmdQueryHeatMode, HeatModes)
}

// Reset 复位仪器操作模式
func (c *Carousel) Reset(ctx context.Context) error {
	_, err := c.disp.Send(ctx, cmdReset, nil)
	return err
}

// SetConnectionCheck 开/关仪器端断线监测
func (c *Carousel) SetConnectionCheck(ctx context.Context, on bool) error {
	cmd := cmdConnCheckOff
	if on {
		cmd = cmdConnCheckOn
	}
	_, err := c.disp.Send(ctx, cmd, nil)
	return err
}

// SoftwareVersion 固件版本号
func (c *Carousel) SoftwareVersion(ctx context.Context) (string, error) {
	v, err := c.disp.Send(ctx, cmdSoftwareVersion, nil)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

func (c *Carousel) sendFloat(ctx context.Context, cmd labline.Command) (float64, error) {
	v, err := c.disp.Send(ctx, cmd, nil)
	if err != nil {
		return 0, err
	}
	return v.Float64(), nil
}

func (c *Carousel) modeText(ctx context.Context, cmd labline.Command, table map[int]string) (string, error) {
	v, err := c.disp.Send(ctx, cmd, nil)
	if err != nil {
		return "", err
	}
	text, ok := table[v.Int]
	if !ok {
		return "", &labline.MalformedReplyError{
			Cmd:    cmd.Name,
			Raw:    fmt.Sprintf("%d", v.Int),
			Reason: "mode code not in table",
		}
	}
	return text, nil
}
