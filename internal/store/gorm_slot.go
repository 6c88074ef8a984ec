package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry 键值槽在数据库中的一行
type KVEntry struct {
	SlotKey   string    `gorm:"primaryKey;size:191"`
	Payload   string    `gorm:"type:longtext;not null"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (KVEntry) TableName() string {
	return "kv_slots"
}

// GormSlot 把键值槽存进关系数据库，SQLite 作为本地存储，MySQL 供多实例共享
type GormSlot struct {
	db *gorm.DB
	// MySQL 支持 SELECT ... FOR UPDATE，SQLite 的写事务本身就是串行的
	lockRows bool
	// 已经插入过占位行的键
	seeded sync.Map
}

// NewGormSlot 创建槽并自动迁移 kv_slots 表
func NewGormSlot(db *gorm.DB) (*GormSlot, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("kv_slots 表迁移失败: %w", err)
	}
	return &GormSlot{
		db:       db,
		lockRows: db.Dialector.Name() == "mysql",
	}, nil
}

func (g *GormSlot) Get(ctx context.Context, key string) (string, bool, error) {
	var entry KVEntry
	err := g.db.WithContext(ctx).Where("slot_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	// 空的占位行视为键不存在
	return entry.Payload, entry.Payload != "", nil
}

// Update 先保证行存在，再在事务里锁行读改写。
// 行不存在时 FOR UPDATE 只能拿到间隙锁，并发首次写入会死锁或主键冲突
func (g *GormSlot) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := g.ensureRow(ctx, key); err != nil {
		return err
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if g.lockRows {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var entry KVEntry
		found := true
		if err := query.Where("slot_key = ?", key).Take(&entry).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		next, err := fn(entry.Payload, found && entry.Payload != "")
		if err != nil {
			return err
		}

		if !found {
			return tx.Create(&KVEntry{SlotKey: key, Payload: next}).Error
		}
		return tx.Model(&KVEntry{}).Where("slot_key = ?", key).Updates(map[string]interface{}{
			"payload":    next,
			"updated_at": time.Now(),
		}).Error
	})
}

// ensureRow 插入空的占位行，已存在时什么都不做
func (g *GormSlot) ensureRow(ctx context.Context, key string) error {
	if _, ok := g.seeded.Load(key); ok {
		return nil
	}
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&KVEntry{SlotKey: key, Payload: ""}).Error
	if err != nil {
		return fmt.Errorf("初始化存储槽 %s 失败: %w", key, err)
	}
	g.seeded.Store(key, struct{}{})
	return nil
}
