package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const defaultRedisRetries = 10

// RedisSlot 使用 Redis 字符串保存键值槽，多个实例可以共享同一份数据
type RedisSlot struct {
	client     *redis.Client
	maxRetries int
}

func NewRedisSlot(client *redis.Client) *RedisSlot {
	return &RedisSlot{client: client, maxRetries: defaultRedisRetries}
}

func (r *RedisSlot) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Update 用 WATCH/MULTI 做乐观事务，键被其他客户端修改时重试
func (r *RedisSlot) Update(ctx context.Context, key string, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Result()
		ok := true
		if errors.Is(err, redis.Nil) {
			ok = false
		} else if err != nil {
			return err
		}

		next, err := fn(old, ok)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < r.maxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrSlotContention
}
