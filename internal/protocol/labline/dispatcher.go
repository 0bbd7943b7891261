package labline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/labforge/labdevice-server/internal/metrics"
)

// Transport 连接协作方。实现负责打开/关闭物理链路、整帧写出、
// 按终结符读取一行应答（终结符剥离后返回），读取须有有界等待。
type Transport interface {
	Open() error
	Close() error
	Write(p []byte) error
	ReadUntil(terminator string) (string, error)
}

// DispatcherConfig Dispatcher 构造参数
type DispatcherConfig struct {
	// Device 仪器名，用于日志与指标标签
	Device string
	// Framing 行帧约定
	Framing Framing
	// MinInterval 相邻命令之间的最小间隔；0 表示不限速。
	// 慢速串口仪器连续收命令会丢帧，参见仪器手册。
	MinInterval time.Duration
	// Simulation 仿真模式：帧只记日志，不触碰传输层
	Simulation bool

	Logger  *zap.Logger
	Metrics *metrics.InstrumentMetrics
}

// Dispatcher 所有仪器操作的唯一通道：校验→编码→发送→读取→解码。
// 帧格式、超时与错误翻译全部集中在这里。不做任何重试。
type Dispatcher struct {
	conn Transport
	fr   Framing
	dev  string
	sim  bool
	lim  *rate.Limiter
	log  *zap.Logger
	met  *metrics.InstrumentMetrics
}

// NewDispatcher 创建命令分发器
func NewDispatcher(conn Transport, cfg DispatcherConfig) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var lim *rate.Limiter
	if cfg.MinInterval > 0 {
		lim = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return &Dispatcher{
		conn: conn,
		fr:   cfg.Framing,
		dev:  cfg.Device,
		sim:  cfg.Simulation,
		lim:  lim,
		log:  log,
		met:  cfg.Metrics,
	}
}

// Simulation 返回是否处于仿真模式
func (d *Dispatcher) Simulation() bool { return d.sim }

// Send 分发一条命令并返回类型化应答。
//
// 约定：
//  1. 提供了参数时先过校验器，InvalidArgumentError 原样上抛，命令不发往仪器；
//  2. 写失败与读超时包装为 ConnectionError，绝不静默返回旧值；
//  3. 命令无 ReplySpec 时发送后立即返回零值（fire-and-forget）；
//  4. 仿真模式下帧只记日志，返回零值。
func (d *Dispatcher) Send(ctx context.Context, cmd Command, arg any) (Value, error) {
	if arg != nil {
		if err := Validate(cmd, arg); err != nil {
			d.count(cmd, "invalid_argument")
			return Value{}, err
		}
	}

	frame, err := EncodeFrame(d.fr, cmd, arg)
	if err != nil {
		d.count(cmd, "invalid_argument")
		return Value{}, err
	}

	if d.sim {
		d.log.Info("simulation: command suppressed",
			zap.String("device", d.dev),
			zap.String("frame", frame))
		return Value{}, nil
	}

	if d.lim != nil {
		if err := d.lim.Wait(ctx); err != nil {
			d.count(cmd, "connection_error")
			return Value{}, &ConnectionError{Op: "throttle", Err: err}
		}
	}

	start := time.Now()
	if err := d.conn.Write([]byte(frame)); err != nil {
		d.count(cmd, "connection_error")
		return Value{}, &ConnectionError{Op: "write " + cmd.Name, Err: err}
	}

	if cmd.Reply == nil {
		d.observe(cmd, start, "ok")
		d.log.Debug("command sent", zap.String("device", d.dev), zap.String("cmd", cmd.Name))
		return Value{}, nil
	}

	raw, err := d.conn.ReadUntil(d.fr.ReplyTerminator)
	if err != nil {
		d.count(cmd, "connection_error")
		return Value{}, &ConnectionError{Op: "read " + cmd.Name, Err: err}
	}

	val, err := DecodeReply(cmd, raw)
	if err != nil {
		d.count(cmd, "malformed_reply")
		return Value{}, err
	}

	d.observe(cmd, start, "ok")
	d.log.Debug("command round trip",
		zap.String("device", d.dev),
		zap.String("cmd", cmd.Name),
		zap.String("raw", raw),
		zap.Duration("took", time.Since(start)))
	return val, nil
}

func (d *Dispatcher) count(cmd Command, result string) {
	if d.met != nil {
		d.met.CommandTotal.WithLabelValues(d.dev, cmd.Name, result).Inc()
	}
}

func (d *Dispatcher) observe(cmd Command, start time.Time, result string) {
	if d.met != nil {
		d.met.CommandTotal.WithLabelValues(d.dev, cmd.Name, result).Inc()
		d.met.CommandSeconds.WithLabelValues(d.dev).Observe(time.Since(start).Seconds())
	}
}
