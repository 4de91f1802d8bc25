// Package tracking 实现匿名会话的身份分配与停留时长上报。
// 一个 Tracker 对应一个浏览会话，所有状态都挂在实例上，
// 多个独立实例（例如测试中）互不干扰。
package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
)

const (
	// SessionKey 是会话存储中保存会话标识的键。
	SessionKey = "gallery_session_id"
	// VisitRecordedKey 标记当前会话已创建过站点访问记录。
	VisitRecordedKey = "visit_recorded"

	defaultReportInterval = 30 * time.Second
)

// Store 是会话生命周期的键值存储，承载会话标识与"已记录"标记。
// 语义对应浏览器标签页的临时存储：同会话内复用，会话结束即清空。
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Recorder 持久化访问与浏览记录，由 service.VisitService 实现。
type Recorder interface {
	RecordSiteVisit(in service.SiteVisitInput) error
	ReportSiteDuration(sessionID string, seconds int64) error
	RecordObraView(in service.ObraViewInput) (uint, error)
	ReportObraDuration(viewID uint, seconds int64) error
	ObraViewCount(obraID uint) (int64, error)
}

// GeoResolver 把 IP 解析为粗粒度地理位置，失败时返回零值。
type GeoResolver interface {
	Lookup(ctx context.Context, ip string) service.GeoLocation
}

// Options 列出构造 Tracker 所需的协作方与会话上下文。
type Options struct {
	Store     Store
	Recorder  Recorder
	Geo       GeoResolver
	Logger    *slog.Logger
	ClientIP  string
	UserAgent string
	// Interval 为上报周期，默认 30 秒。
	Interval time.Duration
	// Now 允许测试注入时钟。
	Now func() time.Time
}

type obraViewState struct {
	obraID    uint
	viewID    uint
	startedAt time.Time
}

// Tracker 为一个匿名会话分配稳定标识，并周期性上报站点与作品的停留时长。
// 状态机：UNINITIALIZED → RECORDING（记录已建、定时器运行）→ TORN_DOWN。
type Tracker struct {
	store    Store
	recorder Recorder
	geo      GeoResolver
	logger   *slog.Logger

	clientIP  string
	userAgent string
	interval  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	sessionID   string
	initialized bool
	tornDown    bool
	startedAt   time.Time
	views       []*obraViewState
	done        chan struct{}
}

// New 构造 Tracker。Store 与 Recorder 必须提供，其余可选。
func New(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultReportInterval
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		store:     opts.Store,
		recorder:  opts.Recorder,
		geo:       opts.Geo,
		logger:    logger,
		clientIP:  opts.ClientIP,
		userAgent: opts.UserAgent,
		interval:  interval,
		now:       now,
	}
}

// GetOrCreateSessionID 返回会话标识；存储中不存在时生成并写入。
// 同一存储生命周期内返回值恒定。
func (t *Tracker) GetOrCreateSessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionIDLocked()
}

func (t *Tracker) sessionIDLocked() string {
	if t.sessionID != "" {
		return t.sessionID
	}

	if existing, ok := t.store.Get(SessionKey); ok && existing != "" {
		t.sessionID = existing
		return existing
	}

	fresh := uuid.NewString()
	t.store.Set(SessionKey, fresh)
	t.sessionID = fresh
	return fresh
}

// InitializeSiteVisit 启动站点访问跟踪。同一 Tracker 上重复调用是空操作。
// 地理位置解析与记录创建在后台完成，不阻塞调用方；
// "已记录"标记在发起时即写入，保证每个会话至多发起一次创建。
func (t *Tracker) InitializeSiteVisit(ctx context.Context) {
	t.mu.Lock()
	if t.initialized || t.tornDown {
		t.mu.Unlock()
		return
	}
	t.initialized = true
	t.startedAt = t.now()
	t.done = make(chan struct{})

	sessionID := t.sessionIDLocked()
	_, recorded := t.store.Get(VisitRecordedKey)
	if !recorded {
		t.store.Set(VisitRecordedKey, "1")
	}
	t.mu.Unlock()

	if !recorded {
		// 有意不跟随调用方的取消：拆除时在途的创建照常完成，
		// 其写入目标是无害的。
		bg := context.WithoutCancel(ctx)
		go t.createSiteVisit(bg, sessionID)
	}

	go t.reportLoop()
}

func (t *Tracker) createSiteVisit(ctx context.Context, sessionID string) {
	location := t.resolveLocation(ctx)

	err := t.recorder.RecordSiteVisit(service.SiteVisitInput{
		SessionID: sessionID,
		IPAddress: t.clientIP,
		Country:   location.Country,
		City:      location.City,
		UserAgent: t.userAgent,
	})
	if err != nil {
		t.logger.Warn("site visit record failed", "session", sessionID, "error", err)
	}
}

func (t *Tracker) resolveLocation(ctx context.Context) service.GeoLocation {
	if t.geo == nil {
		return service.GeoLocation{}
	}
	return t.geo.Lookup(ctx, t.clientIP)
}

func (t *Tracker) reportLoop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.ReportDuration()
		case <-t.done:
			return
		}
	}
}

// ReportDuration 上报自初始化以来的绝对流逝秒数。
// 覆盖写入而非累加，定时器、隐藏与卸载钩子交错触发时结果一致。
// 失败仅记录告警，下个周期自然重试。
func (t *Tracker) ReportDuration() {
	t.mu.Lock()
	if !t.initialized {
		t.mu.Unlock()
		return
	}
	sessionID := t.sessionID
	elapsed := int64(t.now().Sub(t.startedAt).Seconds())

	type viewReport struct {
		viewID  uint
		elapsed int64
	}
	reports := make([]viewReport, 0, len(t.views))
	for _, view := range t.views {
		if view.viewID == 0 {
			continue
		}
		reports = append(reports, viewReport{
			viewID:  view.viewID,
			elapsed: int64(t.now().Sub(view.startedAt).Seconds()),
		})
	}
	t.mu.Unlock()

	if err := t.recorder.ReportSiteDuration(sessionID, elapsed); err != nil {
		t.logger.Warn("site duration report failed", "session", sessionID, "error", err)
	}

	for _, report := range reports {
		if err := t.recorder.ReportObraDuration(report.viewID, report.elapsed); err != nil {
			t.logger.Warn("obra duration report failed", "view", report.viewID, "error", err)
		}
	}
}

// OnHide 在页面进入后台时触发一次上报。
func (t *Tracker) OnHide() {
	t.ReportDuration()
}

// OnUnload 在页面卸载前触发一次上报。
func (t *Tracker) OnUnload() {
	t.ReportDuration()
}

// ObraViewStatus 暴露给调用方的作品跟踪状态。
type ObraViewStatus struct {
	ViewCount int64
	Tracking  bool
}

// InitializeObraView 开始跟踪一次作品浏览。
// 依赖站点跟踪已建立的会话标识，缺失时告警并跳过。
// 每次调用都会创建一条新的浏览记录（同会话重复打开同一作品不去重），
// 并返回该作品当前的累计浏览量。
func (t *Tracker) InitializeObraView(ctx context.Context, obraID uint) ObraViewStatus {
	t.mu.Lock()
	if t.tornDown {
		t.mu.Unlock()
		return ObraViewStatus{}
	}

	sessionID, ok := t.store.Get(SessionKey)
	if !ok || sessionID == "" {
		t.mu.Unlock()
		t.logger.Warn("obra view tracking skipped: no session id", "obra", obraID)
		return ObraViewStatus{}
	}

	state := &obraViewState{obraID: obraID, startedAt: t.now()}
	t.views = append(t.views, state)
	t.mu.Unlock()

	count, err := t.recorder.ObraViewCount(obraID)
	if err != nil {
		t.logger.Warn("obra view count failed", "obra", obraID, "error", err)
	}

	bg := context.WithoutCancel(ctx)
	go t.createObraView(bg, state, sessionID)

	return ObraViewStatus{ViewCount: count, Tracking: true}
}

func (t *Tracker) createObraView(ctx context.Context, state *obraViewState, sessionID string) {
	location := t.resolveLocation(ctx)

	viewID, err := t.recorder.RecordObraView(service.ObraViewInput{
		ObraID:    state.obraID,
		SessionID: sessionID,
		IPAddress: t.clientIP,
		Country:   location.Country,
		City:      location.City,
	})
	if err != nil {
		// 创建失败则本次浏览不再跟踪，不做重试。
		t.logger.Warn("obra view record failed", "obra", state.obraID, "error", err)
		return
	}

	t.mu.Lock()
	state.viewID = viewID
	t.mu.Unlock()
}

// Teardown 停止定时器并发出最后一次尽力而为的上报。
// 上报同步发起但不保证送达，进程突然终止时最后一段时长会丢失。
func (t *Tracker) Teardown() {
	t.mu.Lock()
	if !t.initialized || t.tornDown {
		t.tornDown = true
		t.mu.Unlock()
		return
	}
	t.tornDown = true
	close(t.done)
	t.mu.Unlock()

	t.ReportDuration()
}
