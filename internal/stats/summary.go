package stats

import (
	"sort"
	"time"

	"shorturl-registry/internal/model"
)

// Summary 统计页顶部的汇总数据
type Summary struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Expired     int `json:"expired"`
	TotalClicks int `json:"totalClicks"`
}

func Summarize(records []model.URLRecord, now time.Time) Summary {
	var s Summary
	s.Total = len(records)
	for _, r := range records {
		if r.IsExpired(now) {
			s.Expired++
		} else {
			s.Active++
		}
		s.TotalClicks += r.Clicks
	}
	return s
}

// SortByCreatedDesc 按创建时间倒序，原地排序
func SortByCreatedDesc(records []model.URLRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
