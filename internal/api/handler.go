// Package api 对外HTTP接口：仪器控制、读数查询。
// 所有设备操作都经由 app.Controller 串行化，处理器本身无状态。
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/labforge/labdevice-server/internal/app"
	"github.com/labforge/labdevice-server/internal/device"
	"github.com/labforge/labdevice-server/internal/protocol/labline"
	"github.com/labforge/labdevice-server/internal/storage"
	"github.com/labforge/labdevice-server/internal/storage/models"
	redisstore "github.com/labforge/labdevice-server/internal/storage/redis"
)

// DeviceHandler 仪器API处理器
type DeviceHandler struct {
	hub    *app.Hub
	repo   storage.ReadingRepo     // 可为 nil：历史查询返回 503
	cache  *redisstore.LatestCache // 可为 nil：最新读数接口退化为历史查询
	logger *zap.Logger
}

// NewDeviceHandler 创建仪器API处理器
func NewDeviceHandler(hub *app.Hub, repo storage.ReadingRepo, cache *redisstore.LatestCache, logger *zap.Logger) *DeviceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceHandler{hub: hub, repo: repo, cache: cache, logger: logger}
}

// writeError 按错误类别映射HTTP状态码
func writeError(c *gin.Context, err error) {
	var (
		invalidArg  *labline.InvalidArgumentError
		connErr     *labline.ConnectionError
		malformed   *labline.MalformedReplyError
		unsupported *labline.UnsupportedOperationError
	)
	switch {
	case errors.As(err, &invalidArg):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": "unsupported_operation", "message": err.Error()})
	case errors.As(err, &malformed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "malformed_reply", "message": err.Error()})
	case errors.As(err, &connErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device_unreachable", "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
	}
}

// controller 按路径参数取控制器，不存在时写404
func (h *DeviceHandler) controller(c *gin.Context) (*app.Controller, bool) {
	name := c.Param("name")
	ctrl, ok := h.hub.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_device", "message": "未知仪器: " + name})
		return nil, false
	}
	return ctrl, true
}

// doAction 持锁执行动作类操作，成功返回 {"ok": true}
func (h *DeviceHandler) doAction(c *gin.Context, fn func(context.Context, device.Hotplate) error) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := ctrl.Do(c.Request.Context(), fn); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// replyValue 持锁执行数值查询，成功返回 {"value": v}
func (h *DeviceHandler) replyValue(c *gin.Context, fn func(context.Context, device.Hotplate) (float64, error)) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	v, err := app.Query(ctrl, c.Request.Context(), fn)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": v})
}

// replyText 持锁执行文本查询，成功返回 {"value": s}
func (h *DeviceHandler) replyText(c *gin.Context, fn func(context.Context, device.Hotplate) (string, error)) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	v, err := app.Query(ctrl, c.Request.Context(), fn)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": v})
}

// sensorQuery 解析 ?sensor= 参数，缺省为0（盘面）
func sensorQuery(c *gin.Context) (int, bool) {
	v := c.DefaultQuery("sensor", "0")
	n, err := strconv.Atoi(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": "sensor 必须是整数"})
		return 0, false
	}
	return n, true
}

// ListDevices 查询仪器列表
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	type item struct {
		Name       string `json:"name"`
		Simulation bool   `json:"simulation"`
	}
	out := make([]item, 0, len(h.hub.Names()))
	for _, name := range h.hub.Names() {
		if ctrl, ok := h.hub.Get(name); ok {
			out = append(out, item{Name: name, Simulation: ctrl.Simulation()})
		}
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

// statusView 状态查询响应
type statusView struct {
	Status    string `json:"status"`
	Idle      bool   `json:"idle"`
	Connected bool   `json:"connected"`
}

// GetStatus 查询仪器状态（状态文本 + 空闲/在线判定）
func (h *DeviceHandler) GetStatus(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	view, _ := app.Query(ctrl, c.Request.Context(),
		func(ctx context.Context, dev device.Hotplate) (statusView, error) {
			return statusView{
				Status:    dev.Status(ctx),
				Idle:      dev.IsIdle(ctx),
				Connected: dev.IsConnected(ctx),
			}, nil
		})
	c.JSON(http.StatusOK, view)
}

// Initialize 初始化仪器（连接 + 协议握手）
func (h *DeviceHandler) Initialize(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.Initialize(ctx)
	})
}

// GetTemperature 读当前温度。?sensor=0 盘面，1 外部探头。
func (h *DeviceHandler) GetTemperature(c *gin.Context) {
	sensor, ok := sensorQuery(c)
	if !ok {
		return
	}
	h.replyValue(c, func(ctx context.Context, dev device.Hotplate) (float64, error) {
		return dev.GetTemperature(ctx, sensor)
	})
}

// GetTemperatureSetpoint 读温度设定点
func (h *DeviceHandler) GetTemperatureSetpoint(c *gin.Context) {
	sensor, ok := sensorQuery(c)
	if !ok {
		return
	}
	h.replyValue(c, func(ctx context.Context, dev device.Hotplate) (float64, error) {
		return dev.GetTemperatureSetpoint(ctx, sensor)
	})
}

// GetTemperatureSafetyDelta 读安全温度差值
func (h *DeviceHandler) GetTemperatureSafetyDelta(c *gin.Context) {
	h.replyValue(c, func(ctx context.Context, dev device.Hotplate) (float64, error) {
		return dev.GetTemperatureSafetyDelta(ctx)
	})
}

// setTemperatureRequest 温度设定请求体
type setTemperatureRequest struct {
	Value  float64 `json:"value" binding:"required"`
	Sensor int     `json:"sensor"`
}

// SetTemperature 设定目标温度
func (h *DeviceHandler) SetTemperature(c *gin.Context) {
	var req setTemperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.SetTemperature(ctx, req.Value, req.Sensor)
	})
}

// GetSpeed 读当前转速
func (h *DeviceHandler) GetSpeed(c *gin.Context) {
	h.replyValue(c, func(ctx context.Context, dev device.Hotplate) (float64, error) {
		return dev.GetSpeed(ctx)
	})
}

// GetSpeedSetpoint 读转速设定点
func (h *DeviceHandler) GetSpeedSetpoint(c *gin.Context) {
	h.replyValue(c, func(ctx context.Context, dev device.Hotplate) (float64, error) {
		return dev.GetSpeedSetpoint(ctx)
	})
}

// setSpeedRequest 转速设定请求体
type setSpeedRequest struct {
	Value float64 `json:"value" binding:"required"`
}

// SetSpeed 设定目标转速
func (h *DeviceHandler) SetSpeed(c *gin.Context) {
	var req setSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.SetSpeed(ctx, req.Value)
	})
}

// Start 启动加热+搅拌
func (h *DeviceHandler) Start(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.Start(ctx)
	})
}

// Stop 停止全部活动
func (h *DeviceHandler) Stop(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.Stop(ctx)
	})
}

// StartHeat 启动温控
func (h *DeviceHandler) StartHeat(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.StartTemperatureRegulation(ctx)
	})
}

// StopHeat 停止温控
func (h *DeviceHandler) StopHeat(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.StopTemperatureRegulation(ctx)
	})
}

// StartStir 启动搅拌
func (h *DeviceHandler) StartStir(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.StartStirring(ctx)
	})
}

// StopStir 停止搅拌
func (h *DeviceHandler) StopStir(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.StopStirring(ctx)
	})
}

// Reset 复位仪器操作模式
func (h *DeviceHandler) Reset(c *gin.Context) {
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.Reset(ctx)
	})
}

// GetSensorType 读当前温控探头类型
func (h *DeviceHandler) GetSensorType(c *gin.Context) {
	h.replyText(c, func(ctx context.Context, dev device.Hotplate) (string, error) {
		return dev.GetSensorType(ctx)
	})
}

// setModeRequest 模式设定请求体
type setModeRequest struct {
	Mode int `json:"mode"`
}

// GetHeatMode 读控温模式
func (h *DeviceHandler) GetHeatMode(c *gin.Context) {
	h.replyText(c, func(ctx context.Context, dev device.Hotplate) (string, error) {
		return dev.GetHeatMode(ctx)
	})
}

// SetHeatMode 设定控温模式：0 精确，1 快速
func (h *DeviceHandler) SetHeatMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.SetHeatMode(ctx, req.Mode)
	})
}

// GetResetMode 读断电恢复模式
func (h *DeviceHandler) GetResetMode(c *gin.Context) {
	h.replyText(c, func(ctx context.Context, dev device.Hotplate) (string, error) {
		return dev.GetResetMode(ctx)
	})
}

// SetResetMode 设定断电恢复模式：0 全部关闭，1 全部恢复
func (h *DeviceHandler) SetResetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.SetResetMode(ctx, req.Mode)
	})
}

// connectionCheckRequest 断线监测开关请求体
type connectionCheckRequest struct {
	On bool `json:"on"`
}

// SetConnectionCheck 开/关仪器端的断线监测
func (h *DeviceHandler) SetConnectionCheck(c *gin.Context) {
	var req connectionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument", "message": err.Error()})
		return
	}
	h.doAction(c, func(ctx context.Context, dev device.Hotplate) error {
		return dev.SetConnectionCheck(ctx, req.On)
	})
}

// ListReadings 查询历史读数（需启用数据库）
func (h *DeviceHandler) ListReadings(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_disabled", "message": "数据库未启用"})
		return
	}
	name := c.Param("name")
	if _, ok := h.hub.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_device", "message": "未知仪器: " + name})
		return
	}
	kind := c.DefaultQuery("kind", models.KindTemperature)
	limit := 100
	if v := c.Query("limit"); v != "" {
		if vv, err := strconv.Atoi(v); err == nil {
			limit = vv
		}
	}
	readings, err := h.repo.RecentReadings(c.Request.Context(), name, kind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": name, "kind": kind, "readings": readings})
}

// GetLatest 查询缓存中的最新读数（需启用Redis）
func (h *DeviceHandler) GetLatest(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache_disabled", "message": "Redis缓存未启用"})
		return
	}
	name := c.Param("name")
	if _, ok := h.hub.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_device", "message": "未知仪器: " + name})
		return
	}
	kind := c.DefaultQuery("kind", models.KindTemperature)
	sensor, ok := sensorQuery(c)
	if !ok {
		return
	}
	latest, err := h.cache.Get(c.Request.Context(), name, kind, sensor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
		return
	}
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_reading", "message": "缓存中没有该读数"})
		return
	}
	c.JSON(http.StatusOK, latest)
}
