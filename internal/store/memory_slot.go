package store

import (
	"context"
	"sync"
)

// MemorySlot 基于内存的键值槽，用于测试和本地调试
type MemorySlot struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{data: make(map[string]string)}
}

func (m *MemorySlot) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemorySlot) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.data[key]
	next, err := fn(old, ok)
	if err != nil {
		return err
	}
	m.data[key] = next
	return nil
}

// Set 直接写入原始值，测试里用来构造损坏的数据
func (m *MemorySlot) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}
