package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labforge/labdevice-server/internal/api"
	"github.com/labforge/labdevice-server/internal/app"
	cfgpkg "github.com/labforge/labdevice-server/internal/config"
	"github.com/labforge/labdevice-server/internal/device"
	"github.com/labforge/labdevice-server/internal/device/radleys"
	"github.com/labforge/labdevice-server/internal/httpserver"
	"github.com/labforge/labdevice-server/internal/logging"
	"github.com/labforge/labdevice-server/internal/metrics"
	"github.com/labforge/labdevice-server/internal/recorder"
	"github.com/labforge/labdevice-server/internal/storage"
	"github.com/labforge/labdevice-server/internal/storage/gormrepo"
	redisstore "github.com/labforge/labdevice-server/internal/storage/redis"
	"github.com/labforge/labdevice-server/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（缺省 configs/example.yaml）")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	met := metrics.NewInstrumentMetrics(reg)
	metricsHandler := metrics.Handler(reg)

	// 4) 仪器清单 → 控制器集合
	devices, err := cfgpkg.LoadDevices(cfg.DevicesFile)
	if err != nil {
		log.Fatal("load device inventory failed", zap.Error(err))
	}
	hub := app.NewHub()
	for _, dc := range devices {
		ctrl, err := buildController(dc, met, log)
		if err != nil {
			log.Fatal("build device failed", zap.String("device", dc.Name), zap.Error(err))
		}
		if err := hub.Add(ctrl); err != nil {
			log.Fatal("register device failed", zap.String("device", dc.Name), zap.Error(err))
		}
	}
	log.Info("device inventory loaded", zap.Int("devices", len(devices)))

	// 5) 可选存储：PostgreSQL 读数仓库
	var repo storage.ReadingRepo
	if cfg.Database.Enable {
		db, err := gormrepo.Open(cfg.Database)
		if err != nil {
			log.Fatal("open database failed", zap.Error(err))
		}
		repo = gormrepo.New(db)
		for _, dc := range devices {
			if _, err := repo.EnsureInstrument(context.Background(), dc.Name, dc.Driver, dc.Simulation); err != nil {
				log.Warn("ensure instrument failed", zap.String("device", dc.Name), zap.Error(err))
			}
		}
		log.Info("database storage enabled")
	}

	// 6) 可选缓存：Redis 最新读数
	var cache *redisstore.LatestCache
	var redisClient *redisstore.Client
	if cfg.Redis.Enable {
		redisClient, err = redisstore.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal("connect redis failed", zap.Error(err))
		}
		cache = redisstore.NewLatestCache(redisClient, cfg.Redis.TTL)
		log.Info("redis latest-reading cache enabled")
	}

	// 7) 初始化仪器。单台失败不阻止启动：可通过API重新 initialize。
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	for _, name := range hub.Names() {
		ctrl, _ := hub.Get(name)
		err := ctrl.Do(initCtx, func(ctx context.Context, dev device.Hotplate) error {
			return dev.Initialize(ctx)
		})
		if err != nil {
			log.Warn("device initialisation failed", zap.String("device", name), zap.Error(err))
		}
	}
	cancelInit()

	// 8) HTTP 服务
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, func() bool { return true })
	httpSrv.Register(func(r *gin.Engine) {
		api.RegisterRoutes(r, hub, repo, cache, cfg.API.Auth, log)
	})

	// 9) 后台读数记录仪
	rootCtx, cancel := context.WithCancel(context.Background())
	if cfg.Recorder.Enable {
		rec := recorder.New(hub, repo, cache, met, cfg.Recorder.Interval, log)
		go rec.Run(rootCtx)
	}

	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	log.Info("labdevice-server started", zap.String("addr", cfg.HTTP.Addr))

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpSrv.Shutdown(shutdownCtx)

	// 断开仪器连接，仪器回到本地操作模式
	for _, name := range hub.Names() {
		ctrl, _ := hub.Get(name)
		err := ctrl.Do(context.Background(), func(ctx context.Context, dev device.Hotplate) error {
			return dev.Disconnect()
		})
		if err != nil {
			log.Warn("device disconnect failed", zap.String("device", name), zap.Error(err))
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Info("labdevice-server stopped")
}

// buildController 按驱动标识装配一台仪器及其串口连接
func buildController(dc cfgpkg.DeviceConfig, met *metrics.InstrumentMetrics, log *zap.Logger) (*app.Controller, error) {
	switch dc.Driver {
	case radleys.DriverName:
		conn := transport.NewSerialPort(transport.Params{
			Port:        dc.Serial.Port,
			Baud:        dc.Serial.Baud,
			DataBits:    dc.Serial.DataBits,
			Parity:      dc.Serial.Parity,
			Strict7Bit:  dc.Serial.Strict7Bit,
			ReadTimeout: dc.Serial.ReadTimeout,
		}, log)
		dev := radleys.New(conn, radleys.Config{
			Name:               dc.Name,
			Simulation:         dc.Simulation,
			MinCommandInterval: dc.MinCommandInterval,
			Logger:             log,
			Metrics:            met,
		})
		return app.NewController(dev), nil
	}
	return nil, unknownDriverError(dc.Driver)
}

type unknownDriverError string

func (e unknownDriverError) Error() string {
	return "unknown device driver: " + string(e)
}
