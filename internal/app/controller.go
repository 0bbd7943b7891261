// Package app 承载设备之上、HTTP 之下的装配层。
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/labforge/labdevice-server/internal/device"
)

// Controller 独占一台仪器并串行化其全部操作。
// 串口连接没有内部锁，协议也不允许穿插命令，所以 HTTP 处理器与
// 后台记录仪都必须经由同一个 Controller 访问仪器。
type Controller struct {
	mu  sync.Mutex
	dev device.Hotplate
}

// NewController 包装一台仪器
func NewController(dev device.Hotplate) *Controller {
	return &Controller{dev: dev}
}

// Name 仪器名
func (c *Controller) Name() string { return c.dev.Name() }

// Simulation 是否仿真设备
func (c *Controller) Simulation() bool { return c.dev.Simulation() }

// Do 持锁执行一段设备操作
func (c *Controller) Do(ctx context.Context, fn func(context.Context, device.Hotplate) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(ctx, c.dev)
}

// Query 持锁执行一段带返回值的设备操作
func Query[T any](c *Controller, ctx context.Context, fn func(context.Context, device.Hotplate) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(ctx, c.dev)
}

// Hub 按仪器名索引的控制器集合
type Hub struct {
	controllers map[string]*Controller
}

// NewHub 创建空 Hub
func NewHub() *Hub {
	return &Hub{controllers: make(map[string]*Controller)}
}

// Add 注册一台仪器，名字重复报错
func (h *Hub) Add(ctrl *Controller) error {
	name := ctrl.Name()
	if _, ok := h.controllers[name]; ok {
		return fmt.Errorf("duplicate device %q", name)
	}
	h.controllers[name] = ctrl
	return nil
}

// Get 按名取控制器
func (h *Hub) Get(name string) (*Controller, bool) {
	c, ok := h.controllers[name]
	return c, ok
}

// Names 已注册仪器名，字典序
func (h *Hub) Names() []string {
	out := make([]string, 0, len(h.controllers))
	for name := range h.controllers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
