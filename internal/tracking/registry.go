package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultIdleTTL = 10 * time.Minute

type registryEntry struct {
	tracker  *Tracker
	lastSeen time.Time
}

// Registry 按会话标识维护活跃的 Tracker 实例。
// 客户端不再发来心跳的会话由后台清理协程拆除，避免定时器泄漏。
type Registry struct {
	logger  *slog.Logger
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry 创建 Registry，idleTTL 非正时回退到 10 分钟。
func NewRegistry(idleTTL time.Duration, logger *slog.Logger) *Registry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:  logger,
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// GetOrCreate 返回会话对应的 Tracker，不存在时用 factory 创建。
// 每次访问都会刷新会话的活跃时间。
func (r *Registry) GetOrCreate(sessionID string, factory func() *Tracker) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[sessionID]; ok {
		entry.lastSeen = r.now()
		return entry.tracker
	}

	tracker := factory()
	r.entries[sessionID] = &registryEntry{tracker: tracker, lastSeen: r.now()}
	return tracker
}

// Lookup 返回会话对应的 Tracker（若存在）并刷新活跃时间。
func (r *Registry) Lookup(sessionID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.tracker, true
}

// Remove 拆除并移除会话的 Tracker。
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
	}
	r.mu.Unlock()

	if ok {
		entry.tracker.Teardown()
	}
}

// Len 返回当前活跃会话数。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// StartJanitor 周期性拆除超过 idleTTL 未活跃的会话，直到 ctx 结束。
func (r *Registry) StartJanitor(ctx context.Context) {
	ticker := time.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-ctx.Done():
			r.logger.Info("tracking registry janitor stopping")
			return
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*registryEntry
	for sessionID, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry)
			delete(r.entries, sessionID)
		}
	}
	r.mu.Unlock()

	for _, entry := range stale {
		entry.tracker.Teardown()
	}

	if len(stale) > 0 {
		r.logger.Info("evicted idle tracking sessions", "count", len(stale))
	}
}
