package store

import (
	"context"
	"encoding/json"
	"errors"

	"shorturl-registry/internal/model"

	"go.uber.org/zap"
)

// DefaultKey 是保存全部记录的存储键
const DefaultKey = "url_shortener_data"

var (
	errDuplicate = errors.New("短码已存在")
	errNotFound  = errors.New("短码不存在")
)

// Store 短链接记录的持久化接口。
// 读失败返回空结果，写失败返回 false，错误只写日志不向上抛。
type Store interface {
	LoadAll(ctx context.Context) []model.URLRecord
	AppendRecord(ctx context.Context, record model.URLRecord) bool
	FindByShortcode(ctx context.Context, code string) (model.URLRecord, bool)
	RecordClick(ctx context.Context, code string, event model.ClickEvent) bool
}

// SlotStore 把全部记录序列化成一个 JSON 数组存放在一个键值槽里，
// 每次修改都是对整个集合的读-改-写
type SlotStore struct {
	slot   Slot
	key    string
	cache  *DecodeCache
	logger *zap.SugaredLogger
}

type Option func(*SlotStore)

func WithKey(key string) Option {
	return func(s *SlotStore) { s.key = key }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *SlotStore) { s.logger = logger.Named("store") }
}

func WithDecodeCache(cache *DecodeCache) Option {
	return func(s *SlotStore) { s.cache = cache }
}

func NewSlotStore(slot Slot, opts ...Option) *SlotStore {
	s := &SlotStore{
		slot:   slot,
		key:    DefaultKey,
		logger: zap.S().Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlotStore) LoadAll(ctx context.Context) []model.URLRecord {
	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		s.logger.Errorf("读取存储失败: %v", err)
		return []model.URLRecord{}
	}
	return s.decodeOrEmpty(raw, ok)
}

// AppendRecord 追加一条记录。短码已存在时同样返回 false，
// 检查和写入在同一次原子更新里完成
func (s *SlotStore) AppendRecord(ctx context.Context, record model.URLRecord) bool {
	err := s.slot.Update(ctx, s.key, func(old string, ok bool) (string, error) {
		records := s.decodeOrEmpty(old, ok)
		for _, r := range records {
			if r.Shortcode == record.Shortcode {
				return "", errDuplicate
			}
		}
		return encode(append(records, record.Clone()))
	})
	if err != nil {
		if errors.Is(err, errDuplicate) {
			s.logger.Warnf("短码 %s 已存在，拒绝写入", record.Shortcode)
		} else {
			s.logger.Errorf("保存记录失败: %v", err)
		}
		return false
	}
	return true
}

func (s *SlotStore) FindByShortcode(ctx context.Context, code string) (model.URLRecord, bool) {
	for _, r := range s.LoadAll(ctx) {
		if r.Shortcode == code {
			return r, true
		}
	}
	return model.URLRecord{}, false
}

// RecordClick 点击数加一并追加点击事件，找不到短码时不写入
func (s *SlotStore) RecordClick(ctx context.Context, code string, event model.ClickEvent) bool {
	err := s.slot.Update(ctx, s.key, func(old string, ok bool) (string, error) {
		records := s.decodeOrEmpty(old, ok)
		for i := range records {
			if records[i].Shortcode != code {
				continue
			}
			records[i].ClickHistory = append(records[i].ClickHistory, event)
			records[i].Clicks = len(records[i].ClickHistory)
			return encode(records)
		}
		return "", errNotFound
	})
	if err != nil {
		if !errors.Is(err, errNotFound) {
			s.logger.Errorf("更新点击数失败: %v", err)
		}
		return false
	}
	return true
}

// decodeOrEmpty 反序列化失败时记录日志并当作空集合处理
func (s *SlotStore) decodeOrEmpty(raw string, ok bool) []model.URLRecord {
	if !ok || raw == "" {
		return []model.URLRecord{}
	}

	if s.cache != nil {
		if records, hit := s.cache.Get(raw); hit {
			return records
		}
	}

	var records []model.URLRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Errorf("存储数据无法解析，按空集合处理: %v", err)
		return []model.URLRecord{}
	}
	if records == nil {
		records = []model.URLRecord{}
	}
	for i := range records {
		if records[i].ClickHistory == nil {
			records[i].ClickHistory = []model.ClickEvent{}
		}
		records[i].Clicks = len(records[i].ClickHistory)
	}

	if s.cache != nil {
		s.cache.Set(raw, records)
	}
	return records
}

func encode(records []model.URLRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
