package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"shorturl-registry/internal/model"

	"github.com/dgraph-io/ristretto"
)

// DecodeCache 按原始数据的哈希缓存反序列化结果，
// 数据未变化时重复读取可以跳过 JSON 解析
type DecodeCache struct {
	client *ristretto.Cache
}

// NewDecodeCache maxBytes 为缓存的原始数据总大小上限
func NewDecodeCache(maxBytes int64) (*DecodeCache, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化解析缓存失败: %w", err)
	}
	return &DecodeCache{client: client}, nil
}

// Get 返回深拷贝，调用方可以随意修改
func (c *DecodeCache) Get(raw string) ([]model.URLRecord, bool) {
	v, ok := c.client.Get(hashKey(raw))
	if !ok {
		return nil, false
	}
	cached, ok := v.([]model.URLRecord)
	if !ok {
		return nil, false
	}
	return cloneAll(cached), true
}

func (c *DecodeCache) Set(raw string, records []model.URLRecord) {
	c.client.Set(hashKey(raw), cloneAll(records), int64(len(raw)))
}

// Wait 等待异步写入完成，主要给测试用
func (c *DecodeCache) Wait() {
	c.client.Wait()
}

func (c *DecodeCache) Close() {
	c.client.Close()
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func cloneAll(records []model.URLRecord) []model.URLRecord {
	out := make([]model.URLRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
