package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/tracking"
)

// sessionTracker 返回当前请求对应会话的 Tracker，必要时创建。
func (a *API) sessionTracker(c *gin.Context) (*tracking.Tracker, string) {
	sessionID := ensureTrackingSessionID(c)

	tracker := a.trackers.GetOrCreate(sessionID, func() *tracking.Tracker {
		store := tracking.NewMemStore()
		store.Set(tracking.SessionKey, sessionID)

		return tracking.New(tracking.Options{
			Store:     store,
			Recorder:  a.visits,
			Geo:       a.geo,
			Logger:    a.logger,
			ClientIP:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	})

	return tracker, sessionID
}

// TrackVisit 由页面加载时调用，建立会话身份并开始站点停留跟踪。
// 同一会话内重复调用是幂等的：记录至多创建一次，定时器不会重复启动。
func (a *API) TrackVisit(c *gin.Context) {
	tracker, sessionID := a.sessionTracker(c)
	tracker.InitializeSiteVisit(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID})
}

type durationPayload struct {
	Event string `json:"event"` // tick, hide, unload
}

// TrackDuration 接收客户端的停留时长信标。
// unload 事件会拆除会话的跟踪器并发出最后一次上报。
func (a *API) TrackDuration(c *gin.Context) {
	var payload durationPayload
	if !bindJSON(c, &payload, "Evento inválido") {
		return
	}

	sessionID := ensureTrackingSessionID(c)
	tracker, ok := a.trackers.Lookup(sessionID)
	if !ok {
		// 会话尚未初始化或已被回收，信标是尽力而为的，直接确认。
		c.JSON(http.StatusOK, gin.H{"tracked": false})
		return
	}

	switch payload.Event {
	case "hide":
		tracker.OnHide()
	case "unload":
		tracker.OnUnload()
		a.trackers.Remove(sessionID)
	default:
		tracker.ReportDuration()
	}

	c.JSON(http.StatusOK, gin.H{"tracked": true})
}

// TrackObraView 在作品详情页挂载时调用。
// 每次调用都会生成一条新的浏览记录，并返回该作品当前的累计浏览量。
func (a *API) TrackObraView(c *gin.Context) {
	obraID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de obra inválido")
		return
	}

	if _, err := a.obras.Get(obraID); err != nil {
		respondError(c, http.StatusNotFound, "Obra não encontrada")
		return
	}

	tracker, _ := a.sessionTracker(c)
	status := tracker.InitializeObraView(c.Request.Context(), obraID)

	c.JSON(http.StatusOK, gin.H{
		"view_count": status.ViewCount,
		"tracking":   status.Tracking,
	})
}

// GetObraViewCount 返回作品的累计浏览量。
func (a *API) GetObraViewCount(c *gin.Context) {
	obraID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID de obra inválido")
		return
	}

	count, err := a.visits.ObraViewCount(obraID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Falha ao consultar visualizações")
		return
	}

	c.JSON(http.StatusOK, gin.H{"view_count": count})
}
