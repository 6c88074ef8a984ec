package store

import (
	"context"
	"errors"
)

// ErrSlotContention 乐观事务多次重试仍然冲突
var ErrSlotContention = errors.New("存储槽写入冲突，重试次数已用完")

// UpdateFunc 接收旧值（ok 表示键是否存在），返回要写回的新值。
// 返回错误时不写入。在乐观事务中可能被调用多次。
type UpdateFunc func(old string, ok bool) (string, error)

// Slot 是一个持久化的键值槽，注册表的全部数据序列化后放在一个键下
type Slot interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Update 对单个键做原子的读-改-写
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
