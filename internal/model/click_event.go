package model

import (
	"time"
)

const (
	// DirectReferrer 没有来源页时使用
	DirectReferrer = "Direct"
	// UnknownLocation 不做真实的地理定位
	UnknownLocation = "Unknown"
)

// ClickEvent 一次访问记录
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  string    `json:"referrer"`
	UserAgent string    `json:"userAgent"`
	Location  string    `json:"location"`
}

func NewClickEvent(at time.Time, referrer, userAgent string) ClickEvent {
	if referrer == "" {
		referrer = DirectReferrer
	}
	return ClickEvent{
		Timestamp: at,
		Referrer:  referrer,
		UserAgent: userAgent,
		Location:  UnknownLocation,
	}
}
