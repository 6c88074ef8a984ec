package stats

import (
	"context"
	"sync"
	"time"

	"shorturl-registry/internal/model"

	"go.uber.org/zap"
)

// DefaultRefreshInterval 统计数据的刷新周期
const DefaultRefreshInterval = 5 * time.Second

// Source 提供全部记录和当前时间，通常是 registry.Registry
type Source interface {
	ListAll(ctx context.Context) []model.URLRecord
	Now() time.Time
}

// Snapshot 某一时刻的统计结果，Records 已按创建时间倒序
type Snapshot struct {
	Summary     Summary           `json:"summary"`
	Records     []model.URLRecord `json:"records"`
	RefreshedAt time.Time         `json:"refreshedAt"`
}

// Poller 定期刷新统计快照，生命周期由 Start/Stop 显式控制
type Poller struct {
	source   Source
	interval time.Duration
	logger   *zap.SugaredLogger

	mu       sync.RWMutex
	snapshot Snapshot

	lifecycle sync.Mutex
	started   bool
	stopped   bool
	stopChan  chan struct{}
	done      chan struct{}
}

func NewPoller(source Source, interval time.Duration, logger *zap.SugaredLogger) *Poller {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger.Named("stats_poller"),
		snapshot: Snapshot{Records: []model.URLRecord{}},
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 立即刷新一次，然后按周期在后台刷新。重复调用无效果
func (p *Poller) Start() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.logger.Infof("启动统计刷新任务，周期 %s", p.interval)
	p.Refresh()
	go p.loop()
}

// Stop 停止后台刷新并等待其退出，可以重复调用
func (p *Poller) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopChan)

	if p.started {
		<-p.done
		p.logger.Info("统计刷新任务已停止。")
	}
}

// Refresh 同步重新计算快照
func (p *Poller) Refresh() Snapshot {
	records := p.source.ListAll(context.Background())
	SortByCreatedDesc(records)
	now := p.source.Now()

	snap := Snapshot{
		Summary:     Summarize(records, now),
		Records:     records,
		RefreshedAt: now,
	}

	p.mu.Lock()
	p.snapshot = snap
	p.mu.Unlock()
	return snap
}

// Snapshot 返回最近一次刷新的结果
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

func (p *Poller) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Refresh()
		case <-p.stopChan:
			return
		}
	}
}
