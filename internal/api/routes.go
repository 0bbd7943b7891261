package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labforge/labdevice-server/internal/api/middleware"
	"github.com/labforge/labdevice-server/internal/app"
	"github.com/labforge/labdevice-server/internal/config"
	"github.com/labforge/labdevice-server/internal/storage"
	redisstore "github.com/labforge/labdevice-server/internal/storage/redis"
)

// RegisterRoutes 注册仪器API路由
func RegisterRoutes(
	r *gin.Engine,
	hub *app.Hub,
	repo storage.ReadingRepo,
	cache *redisstore.LatestCache,
	authCfg config.AuthConfig,
	logger *zap.Logger,
) {
	if r == nil || hub == nil {
		return
	}

	handler := NewDeviceHandler(hub, repo, cache, logger)

	api := r.Group("/api/v1")
	api.Use(middleware.RequestID())
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.GET("/devices", handler.ListDevices)

	dev := api.Group("/devices/:name")
	{
		dev.GET("/status", handler.GetStatus)
		dev.POST("/initialize", handler.Initialize)
		dev.POST("/start", handler.Start)
		dev.POST("/stop", handler.Stop)
		dev.POST("/reset", handler.Reset)

		dev.GET("/temperature", handler.GetTemperature)
		dev.POST("/temperature", handler.SetTemperature)
		dev.GET("/temperature/setpoint", handler.GetTemperatureSetpoint)
		dev.GET("/temperature/safety-delta", handler.GetTemperatureSafetyDelta)
		dev.POST("/heat/start", handler.StartHeat)
		dev.POST("/heat/stop", handler.StopHeat)

		dev.GET("/speed", handler.GetSpeed)
		dev.POST("/speed", handler.SetSpeed)
		dev.GET("/speed/setpoint", handler.GetSpeedSetpoint)
		dev.POST("/stir/start", handler.StartStir)
		dev.POST("/stir/stop", handler.StopStir)

		dev.GET("/sensor-type", handler.GetSensorType)
		dev.GET("/heat-mode", handler.GetHeatMode)
		dev.POST("/heat-mode", handler.SetHeatMode)
		dev.GET("/reset-mode", handler.GetResetMode)
		dev.POST("/reset-mode", handler.SetResetMode)
		dev.POST("/connection-check", handler.SetConnectionCheck)

		dev.GET("/readings", handler.ListReadings)
		dev.GET("/readings/latest", handler.GetLatest)
	}

	logger.Info("device routes registered", zap.Int("devices", len(hub.Names())))
}
