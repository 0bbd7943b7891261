// Package storage 定义读数存储的仓库接口，具体实现见 gormrepo。
package storage

import (
	"context"

	"github.com/labforge/labdevice-server/internal/storage/models"
)

// ReadingRepo 读数仓库
type ReadingRepo interface {
	// EnsureInstrument 仪器不存在则插入，存在则返回现有记录
	EnsureInstrument(ctx context.Context, name, driver string, simulation bool) (*models.Instrument, error)
	// TouchInstrument 刷新仪器 last_seen_at
	TouchInstrument(ctx context.Context, name string) error
	// SaveReadings 批量落库一轮轮询的读数
	SaveReadings(ctx context.Context, readings []models.Reading) error
	// RecentReadings 按时间倒序查询某仪器某类读数
	RecentReadings(ctx context.Context, device, kind string, limit int) ([]models.Reading, error)
}
