package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"shorturl-registry/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slotFactories 每种键值槽实现都要通过同一组用例
func slotFactories(t *testing.T) map[string]func(t *testing.T) Slot {
	return map[string]func(t *testing.T) Slot{
		"memory": func(t *testing.T) Slot {
			return NewMemorySlot()
		},
		"sqlite": func(t *testing.T) Slot {
			name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
			db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			require.NoError(t, err)
			sqlDB, err := db.DB()
			require.NoError(t, err)
			sqlDB.SetMaxOpenConns(1)
			t.Cleanup(func() { sqlDB.Close() })

			slot, err := NewGormSlot(db)
			require.NoError(t, err)
			return slot
		},
		"redis": func(t *testing.T) Slot {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			return NewRedisSlot(client)
		},
	}
}

func newRecord(code string, now time.Time) model.URLRecord {
	return model.NewURLRecord("https://example.com/"+code, code, now, 30*time.Minute)
}

func TestSlotStore_Contract(t *testing.T) {
	ctx := context.Background()
	nop := zap.NewNop().Sugar()

	for name, factory := range slotFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("LoadAll_Empty", func(t *testing.T) {
				s := NewSlotStore(factory(t), WithLogger(nop))
				records := s.LoadAll(ctx)
				assert.NotNil(t, records)
				assert.Empty(t, records)
			})

			t.Run("Append_And_Find", func(t *testing.T) {
				s := NewSlotStore(factory(t), WithLogger(nop))
				now := time.Now()

				require.True(t, s.AppendRecord(ctx, newRecord("abc123", now)))
				require.True(t, s.AppendRecord(ctx, newRecord("xyz789", now)))

				all := s.LoadAll(ctx)
				require.Len(t, all, 2)
				assert.Equal(t, "abc123", all[0].Shortcode)
				assert.Equal(t, "xyz789", all[1].Shortcode)

				rec, ok := s.FindByShortcode(ctx, "xyz789")
				require.True(t, ok)
				assert.Equal(t, "https://example.com/xyz789", rec.OriginalURL)
				assert.True(t, rec.CreatedAt.Equal(now), "时间戳应从字符串重新解析")

				_, ok = s.FindByShortcode(ctx, "nope")
				assert.False(t, ok)
			})

			t.Run("Append_Duplicate_Rejected", func(t *testing.T) {
				s := NewSlotStore(factory(t), WithLogger(nop))
				now := time.Now()

				require.True(t, s.AppendRecord(ctx, newRecord("dup", now)))
				assert.False(t, s.AppendRecord(ctx, newRecord("dup", now)))
				assert.Len(t, s.LoadAll(ctx), 1)
			})

			t.Run("RecordClick", func(t *testing.T) {
				s := NewSlotStore(factory(t), WithLogger(nop))
				now := time.Now()
				require.True(t, s.AppendRecord(ctx, newRecord("click", now)))

				for i := 0; i < 3; i++ {
					ev := model.NewClickEvent(now.Add(time.Duration(i)*time.Second), fmt.Sprintf("ref-%d", i), "ua")
					require.True(t, s.RecordClick(ctx, "click", ev))
				}

				rec, ok := s.FindByShortcode(ctx, "click")
				require.True(t, ok)
				assert.Equal(t, 3, rec.Clicks)
				require.Len(t, rec.ClickHistory, 3)
				for i, ev := range rec.ClickHistory {
					assert.Equal(t, fmt.Sprintf("ref-%d", i), ev.Referrer)
				}
			})

			t.Run("RecordClick_NotFound", func(t *testing.T) {
				slot := factory(t)
				s := NewSlotStore(slot, WithLogger(nop))

				assert.False(t, s.RecordClick(ctx, "missing", model.NewClickEvent(time.Now(), "", "")))
				_, ok, err := slot.Get(ctx, DefaultKey)
				require.NoError(t, err)
				assert.False(t, ok, "找不到短码时不应写入")
			})

			t.Run("LoadAll_Idempotent", func(t *testing.T) {
				s := NewSlotStore(factory(t), WithLogger(nop))
				require.True(t, s.AppendRecord(ctx, newRecord("same", time.Now())))

				first := s.LoadAll(ctx)
				second := s.LoadAll(ctx)
				assert.Equal(t, first, second)
			})
		})
	}
}

func TestSlotStore_CorruptedData(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	slot.Set(DefaultKey, "{not json")
	s := NewSlotStore(slot, WithLogger(zap.NewNop().Sugar()))

	assert.Empty(t, s.LoadAll(ctx))
	_, ok := s.FindByShortcode(ctx, "abc")
	assert.False(t, ok)

	// 损坏的数据在下一次写入时被覆盖
	require.True(t, s.AppendRecord(ctx, newRecord("fresh", time.Now())))
	assert.Len(t, s.LoadAll(ctx), 1)
}

func TestSlotStore_NormalizesLegacyRecords(t *testing.T) {
	ctx := context.Background()
	slot := NewMemorySlot()
	slot.Set(DefaultKey, `[{"id":"1","originalUrl":"https://example.com","shortcode":"old","createdAt":"2024-01-01T00:00:00Z","expiryDate":"2024-01-01T00:30:00Z"}]`)
	s := NewSlotStore(slot, WithLogger(zap.NewNop().Sugar()))

	rec, ok := s.FindByShortcode(ctx, "old")
	require.True(t, ok)
	assert.NotNil(t, rec.ClickHistory)
	assert.Equal(t, 0, rec.Clicks)

	require.True(t, s.RecordClick(ctx, "old", model.NewClickEvent(time.Now(), "", "")))
	rec, _ = s.FindByShortcode(ctx, "old")
	assert.Equal(t, 1, rec.Clicks)
	assert.Len(t, rec.ClickHistory, 1)
}

// failingSlot 模拟写入失败（例如配额用尽）
type failingSlot struct {
	*MemorySlot
	failWrites bool
	failReads  bool
}

func (f *failingSlot) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failReads {
		return "", false, errors.New("读取失败")
	}
	return f.MemorySlot.Get(ctx, key)
}

func (f *failingSlot) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if f.failWrites {
		return errors.New("配额已满")
	}
	return f.MemorySlot.Update(ctx, key, fn)
}

func TestSlotStore_StorageFailures(t *testing.T) {
	ctx := context.Background()
	slot := &failingSlot{MemorySlot: NewMemorySlot()}
	s := NewSlotStore(slot, WithLogger(zap.NewNop().Sugar()))
	require.True(t, s.AppendRecord(ctx, newRecord("ok", time.Now())))

	slot.failWrites = true
	assert.False(t, s.AppendRecord(ctx, newRecord("fail", time.Now())))
	assert.False(t, s.RecordClick(ctx, "ok", model.NewClickEvent(time.Now(), "", "")))

	slot.failReads = true
	assert.NotPanics(t, func() {
		assert.Empty(t, s.LoadAll(ctx))
	})
}

// raceForShortcode 多个协程同时写入同一个短码，返回成功的次数
func raceForShortcode(ctx context.Context, stores []*SlotStore, workers int) int {
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(s *SlotStore) {
			defer wg.Done()
			if s.AppendRecord(ctx, newRecord("race", now)) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(stores[i%len(stores)])
	}
	wg.Wait()
	return accepted
}

func TestSlotStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()

	for name, factory := range slotFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := NewSlotStore(factory(t), WithLogger(zap.NewNop().Sugar()))

			// 所有协程争抢同一个短码，只能有一个成功
			assert.Equal(t, 1, raceForShortcode(ctx, []*SlotStore{s}, 20))
			assert.Len(t, s.LoadAll(ctx), 1)
		})
	}
}

func TestRedisSlot_ConcurrentClients(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Close()
	defer b.Close()

	stores := []*SlotStore{
		NewSlotStore(NewRedisSlot(a), WithLogger(zap.NewNop().Sugar())),
		NewSlotStore(NewRedisSlot(b), WithLogger(zap.NewNop().Sugar())),
	}

	assert.Equal(t, 1, raceForShortcode(ctx, stores, 20), "两个实例同时写入同一个短码，只能接受一次")
	assert.Len(t, stores[0].LoadAll(ctx), 1)
	assert.Len(t, stores[1].LoadAll(ctx), 1)
}

func TestRedisSlot_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	defer other.Close()

	slot := NewRedisSlot(client)

	calls := 0
	err := slot.Update(ctx, "k", func(old string, ok bool) (string, error) {
		calls++
		if calls == 1 {
			// 第一次读完之后被另一个客户端改掉，EXEC 会失败
			require.NoError(t, other.Set(ctx, "k", "theirs", 0).Err())
			return "mine", nil
		}
		assert.True(t, ok)
		assert.Equal(t, "theirs", old)
		return old + "+mine", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	mr.CheckGet(t, "k", "theirs+mine")
}

func TestRedisSlot_ContentionExhausted(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	defer other.Close()

	slot := NewRedisSlot(client)

	calls := 0
	err := slot.Update(ctx, "k", func(old string, ok bool) (string, error) {
		calls++
		require.NoError(t, other.Set(ctx, "k", fmt.Sprintf("v%d", calls), 0).Err())
		return "mine", nil
	})
	assert.ErrorIs(t, err, ErrSlotContention)
	assert.Equal(t, defaultRedisRetries, calls)
	mr.CheckGet(t, "k", fmt.Sprintf("v%d", defaultRedisRetries))
}

func TestGormSlot_PlaceholderRow(t *testing.T) {
	ctx := context.Background()
	slot := slotFactories(t)["sqlite"](t).(*GormSlot)

	// 更新函数出错时只留下空的占位行，读取时仍然视为不存在
	err := slot.Update(ctx, "fresh", func(old string, ok bool) (string, error) {
		assert.False(t, ok)
		assert.Empty(t, old)
		return "", errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, slot.db.Model(&KVEntry{}).Where("slot_key = ?", "fresh").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, ok, err := slot.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slot.Update(ctx, "fresh", func(old string, ok bool) (string, error) {
		assert.False(t, ok)
		return "payload", nil
	}))
	value, ok, err := slot.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", value)

	require.NoError(t, slot.db.Model(&KVEntry{}).Where("slot_key = ?", "fresh").Count(&count).Error)
	assert.Equal(t, int64(1), count, "占位行被原地更新，不会重复插入")
}

func TestSlotStore_WithDecodeCache(t *testing.T) {
	ctx := context.Background()
	cache, err := NewDecodeCache(1 << 20)
	require.NoError(t, err)
	defer cache.Close()

	s := NewSlotStore(NewMemorySlot(), WithLogger(zap.NewNop().Sugar()), WithDecodeCache(cache))
	require.True(t, s.AppendRecord(ctx, newRecord("cached", time.Now())))

	first := s.LoadAll(ctx)
	cache.Wait()
	second := s.LoadAll(ctx)
	assert.Equal(t, first, second)

	// 修改返回值不能影响缓存
	second[0].ClickHistory = append(second[0].ClickHistory, model.NewClickEvent(time.Now(), "", ""))
	second[0].Shortcode = "mutated"
	third := s.LoadAll(ctx)
	assert.Equal(t, "cached", third[0].Shortcode)
	assert.Empty(t, third[0].ClickHistory)

	require.True(t, s.RecordClick(ctx, "cached", model.NewClickEvent(time.Now(), "", "")))
	rec, ok := s.FindByShortcode(ctx, "cached")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Clicks)
}

func TestRedisSlot_SharedAcrossClients(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Close()
	defer b.Close()

	storeA := NewSlotStore(NewRedisSlot(a), WithLogger(zap.NewNop().Sugar()))
	storeB := NewSlotStore(NewRedisSlot(b), WithLogger(zap.NewNop().Sugar()))

	require.True(t, storeA.AppendRecord(ctx, newRecord("shared", time.Now())))
	assert.False(t, storeB.AppendRecord(ctx, newRecord("shared", time.Now())), "另一个实例也要看到短码已被占用")

	_, ok := storeB.FindByShortcode(ctx, "shared")
	assert.True(t, ok)
}
