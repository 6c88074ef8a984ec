package model

import (
	"time"

	"github.com/google/uuid"
)

// URLRecord 短链接记录，一个短码对应一条
type URLRecord struct {
	ID           string       `json:"id"`
	OriginalURL  string       `json:"originalUrl"`
	Shortcode    string       `json:"shortcode"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiryDate   time.Time    `json:"expiryDate"`
	Clicks       int          `json:"clicks"`
	ClickHistory []ClickEvent `json:"clickHistory"`
}

// NewURLRecord 创建一条新记录，点击数为 0
func NewURLRecord(originalURL, shortcode string, createdAt time.Time, validity time.Duration) URLRecord {
	return URLRecord{
		ID:           uuid.NewString(),
		OriginalURL:  originalURL,
		Shortcode:    shortcode,
		CreatedAt:    createdAt,
		ExpiryDate:   createdAt.Add(validity),
		Clicks:       0,
		ClickHistory: []ClickEvent{},
	}
}

// IsExpired 过期是计算出来的，不会修改记录
func (r URLRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiryDate)
}

// Clone 深拷贝，避免调用方修改缓存中的点击历史
func (r URLRecord) Clone() URLRecord {
	history := make([]ClickEvent, len(r.ClickHistory))
	copy(history, r.ClickHistory)
	r.ClickHistory = history
	return r
}
