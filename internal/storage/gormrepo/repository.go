// Package gormrepo 基于 GORM/PostgreSQL 的读数仓库实现
package gormrepo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	cfgpkg "github.com/labforge/labdevice-server/internal/config"
	"github.com/labforge/labdevice-server/internal/storage"
	"github.com/labforge/labdevice-server/internal/storage/models"
)

// Open 连接 PostgreSQL 并迁移表结构
func Open(cfg cfgpkg.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&models.Instrument{}, &models.Reading{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Repository storage.ReadingRepo 的 GORM 实现
type Repository struct {
	db *gorm.DB
}

// New 返回使用给定 *gorm.DB 的仓库实例
func New(db *gorm.DB) storage.ReadingRepo {
	return &Repository{db: db}
}

// EnsureInstrument 仪器不存在则插入，冲突时保持原记录
func (r *Repository) EnsureInstrument(ctx context.Context, name, driver string, simulation bool) (*models.Instrument, error) {
	record := &models.Instrument{
		Name:       name,
		Driver:     driver,
		Simulation: simulation,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": gorm.Expr("NOW()")}),
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	var out models.Instrument
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// TouchInstrument 刷新 last_seen_at
func (r *Repository) TouchInstrument(ctx context.Context, name string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Instrument{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{"last_seen_at": &now}).Error
}

// SaveReadings 批量落库
func (r *Repository) SaveReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&readings).Error
}

// RecentReadings 按时间倒序取最近 limit 条
func (r *Repository) RecentReadings(ctx context.Context, device, kind string, limit int) ([]models.Reading, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var out []models.Reading
	err := r.db.WithContext(ctx).
		Where("device = ? AND kind = ?", device, kind).
		Order("taken_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
