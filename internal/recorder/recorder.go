// Package recorder 周期性轮询已注册仪器并落库读数。
// 每轮依次读取状态、两路温度与转速；结果写入 PostgreSQL（可选）
// 与最新读数缓存（可选），同时维护 device_up 指标。
package recorder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/labforge/labdevice-server/internal/app"
	"github.com/labforge/labdevice-server/internal/device"
	"github.com/labforge/labdevice-server/internal/metrics"
	"github.com/labforge/labdevice-server/internal/storage"
	"github.com/labforge/labdevice-server/internal/storage/models"
	redisstore "github.com/labforge/labdevice-server/internal/storage/redis"
)

// Recorder 后台读数记录仪
type Recorder struct {
	hub      *app.Hub
	repo     storage.ReadingRepo      // 可为 nil：不落库
	cache    *redisstore.LatestCache  // 可为 nil：不写缓存
	met      *metrics.InstrumentMetrics
	interval time.Duration
	log      *zap.Logger
}

// New 创建记录仪
func New(hub *app.Hub, repo storage.ReadingRepo, cache *redisstore.LatestCache,
	met *metrics.InstrumentMetrics, interval time.Duration, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Recorder{hub: hub, repo: repo, cache: cache, met: met, interval: interval, log: log}
}

// Run 阻塞运行轮询循环，直到 ctx 取消
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("recorder started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("recorder stopped")
			return
		case <-ticker.C:
			r.pollAll(ctx)
		}
	}
}

func (r *Recorder) pollAll(ctx context.Context) {
	for _, name := range r.hub.Names() {
		ctrl, ok := r.hub.Get(name)
		if !ok {
			continue
		}
		r.pollOne(ctx, ctrl)
	}
}

// cycle 一轮轮询的结果
type cycle struct {
	readings []models.Reading
	status   string
}

// pollOne 采集一台仪器的一轮读数。单台失败不影响其余仪器。
func (r *Recorder) pollOne(ctx context.Context, ctrl *app.Controller) {
	name := ctrl.Name()
	now := time.Now()

	res, _ := app.Query(ctrl, ctx,
		func(ctx context.Context, dev device.Hotplate) (cycle, error) {
			readings, status := collect(ctx, dev, now)
			return cycle{readings: readings, status: status}, nil
		})
	readings, status := res.readings, res.status

	up := 0.0
	if status != "ERROR" {
		up = 1.0
	}
	if r.met != nil {
		r.met.DeviceUp.WithLabelValues(name).Set(up)
	}

	if len(readings) == 0 {
		r.log.Debug("no readings this cycle", zap.String("device", name), zap.String("status", status))
		return
	}

	if r.repo != nil {
		if err := r.repo.SaveReadings(ctx, readings); err != nil {
			r.log.Warn("save readings failed", zap.String("device", name), zap.Error(err))
		} else {
			if r.met != nil {
				r.met.ReadingsTotal.Add(float64(len(readings)))
			}
			if err := r.repo.TouchInstrument(ctx, name); err != nil {
				r.log.Warn("touch instrument failed", zap.String("device", name), zap.Error(err))
			}
		}
	}

	if r.cache != nil {
		for _, reading := range readings {
			err := r.cache.Set(ctx, redisstore.LatestReading{
				Device:  reading.Device,
				Kind:    reading.Kind,
				Sensor:  int(reading.Sensor),
				Value:   reading.Value,
				Status:  reading.Status,
				TakenAt: reading.TakenAt,
			})
			if err != nil {
				r.log.Warn("cache latest reading failed", zap.String("device", name), zap.Error(err))
				break
			}
		}
	}
}

// collect 在持锁状态下读一轮数据。单项读取失败只是跳过该项：
// 探头未接时外部温度读取照样可能失败，不算整轮失败。
func collect(ctx context.Context, dev device.Hotplate, now time.Time) ([]models.Reading, string) {
	name := dev.Name()
	status := dev.Status(ctx)

	var out []models.Reading
	if status == "ERROR" {
		return out, status
	}

	for _, sensor := range []int{0, 1} {
		if v, err := dev.GetTemperature(ctx, sensor); err == nil {
			out = append(out, models.Reading{
				Device: name, Kind: models.KindTemperature,
				Sensor: int32(sensor), Value: v, Status: status, TakenAt: now,
			})
		}
	}
	if v, err := dev.GetSpeed(ctx); err == nil {
		out = append(out, models.Reading{
			Device: name, Kind: models.KindSpeed,
			Value: v, Status: status, TakenAt: now,
		})
	}
	return out, status
}
