package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LatestReading 缓存中的一条最新读数
type LatestReading struct {
	Device  string    `json:"device"`
	Kind    string    `json:"kind"`
	Sensor  int       `json:"sensor"`
	Value   float64   `json:"value"`
	Status  string    `json:"status"`
	TakenAt time.Time `json:"taken_at"`
}

// LatestCache 最新读数缓存
type LatestCache struct {
	client *Client
	ttl    time.Duration
}

// NewLatestCache 创建缓存。ttl 到期后读数视为过时，宁缺毋滥。
func NewLatestCache(client *Client, ttl time.Duration) *LatestCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LatestCache{client: client, ttl: ttl}
}

func latestKey(device, kind string, sensor int) string {
	return fmt.Sprintf("labdev:latest:%s:%s:%d", device, kind, sensor)
}

// Set 写入一条最新读数
func (c *LatestCache) Set(ctx context.Context, r LatestReading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestKey(r.Device, r.Kind, r.Sensor), data, c.ttl).Err()
}

// Get 读取一条最新读数；缓存缺失返回 (nil, nil)
func (c *LatestCache) Get(ctx context.Context, device, kind string, sensor int) (*LatestReading, error) {
	data, err := c.client.Get(ctx, latestKey(device, kind, sensor)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out LatestReading
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
