package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"gorm.io/gorm"
)

func seedObra(t *testing.T, gdb *gorm.DB, title string) *db.Obra {
	t.Helper()

	obra := &db.Obra{UserID: 1, Title: title, ImageURL: "/static/uploads/" + title + ".png", Status: "published"}
	if err := gdb.Create(obra).Error; err != nil {
		t.Fatalf("failed to seed obra: %v", err)
	}
	return obra
}

func TestTrackVisitIsIdempotentPerSession(t *testing.T) {
	engine, gdb, cleanup := setupAppTest(t)
	defer cleanup()

	w, cookies := doJSON(t, engine, http.MethodPost, "/api/track/visit", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	payload := decodeJSONBody(t, w)
	sessionID, _ := payload["session_id"].(string)
	if sessionID == "" {
		t.Fatal("expected session_id in response")
	}

	countVisits := func() (int64, error) {
		var count int64
		err := gdb.Model(&db.SiteVisit{}).Count(&count).Error
		return count, err
	}

	waitForCount(t, 1, "site visits", countVisits)

	// 同一会话重复上报不再创建记录
	w, _ = doJSON(t, engine, http.MethodPost, "/api/track/visit", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", w.Code)
	}
	repeat := decodeJSONBody(t, w)
	if got, _ := repeat["session_id"].(string); got != sessionID {
		t.Fatalf("expected stable session id %q, got %q", sessionID, got)
	}

	waitForCount(t, 1, "site visits after repeat", countVisits)

	var visit db.SiteVisit
	if err := gdb.First(&visit).Error; err != nil {
		t.Fatalf("failed to load visit: %v", err)
	}
	if visit.SessionID != sessionID {
		t.Fatalf("expected visit for session %q, got %q", sessionID, visit.SessionID)
	}
}

func TestTrackVisitSeparateSessionsCreateSeparateRecords(t *testing.T) {
	engine, gdb, cleanup := setupAppTest(t)
	defer cleanup()

	// 不复用 Cookie：两次请求是两个独立会话
	doJSON(t, engine, http.MethodPost, "/api/track/visit", nil, nil)
	doJSON(t, engine, http.MethodPost, "/api/track/visit", nil, nil)

	waitForCount(t, 2, "site visits", func() (int64, error) {
		var count int64
		err := gdb.Model(&db.SiteVisit{}).Count(&count).Error
		return count, err
	})
}

func TestTrackObraViewRecordsEachMount(t *testing.T) {
	engine, gdb, cleanup := setupAppTest(t)
	defer cleanup()

	obra := seedObra(t, gdb, "marinha")

	_, cookies := doJSON(t, engine, http.MethodPost, "/api/track/visit", nil, nil)

	target := fmt.Sprintf("/api/track/obras/%d/view", obra.ID)
	w, cookies := doJSON(t, engine, http.MethodPost, target, nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	first := decodeJSONBody(t, w)
	if tracking, _ := first["tracking"].(bool); !tracking {
		t.Fatalf("expected tracking=true, got %v", first)
	}

	countViews := func() (int64, error) {
		var count int64
		err := gdb.Model(&db.ObraView{}).Where("obra_id = ?", obra.ID).Count(&count).Error
		return count, err
	}
	waitForCount(t, 1, "obra views", countViews)

	// 重复打开同一作品：生成新的浏览记录
	w, _ = doJSON(t, engine, http.MethodPost, target, nil, cookies)
	second := decodeJSONBody(t, w)
	if got, _ := second["view_count"].(float64); got != 1 {
		t.Fatalf("expected remount to observe view_count 1, got %v", second["view_count"])
	}

	waitForCount(t, 2, "obra views after remount", countViews)
}

func TestTrackObraViewUnknownObra(t *testing.T) {
	engine, _, cleanup := setupAppTest(t)
	defer cleanup()

	w, _ := doJSON(t, engine, http.MethodPost, "/api/track/obras/999/view", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTrackDurationWithoutActiveSession(t *testing.T) {
	engine, _, cleanup := setupAppTest(t)
	defer cleanup()

	w, _ := doJSON(t, engine, http.MethodPost, "/api/track/duration", gin.H{"event": "tick"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	payload := decodeJSONBody(t, w)
	if tracked, _ := payload["tracked"].(bool); tracked {
		t.Fatal("expected tracked=false for unknown session")
	}
}

func TestTrackDurationUnloadTearsDownSession(t *testing.T) {
	engine, _, cleanup := setupAppTest(t)
	defer cleanup()

	_, cookies := doJSON(t, engine, http.MethodPost, "/api/track/visit", nil, nil)

	w, cookies := doJSON(t, engine, http.MethodPost, "/api/track/duration", gin.H{"event": "unload"}, cookies)
	payload := decodeJSONBody(t, w)
	if tracked, _ := payload["tracked"].(bool); !tracked {
		t.Fatal("expected unload beacon to be tracked")
	}

	// 拆除后同一会话的信标不再命中跟踪器
	w, _ = doJSON(t, engine, http.MethodPost, "/api/track/duration", gin.H{"event": "tick"}, cookies)
	payload = decodeJSONBody(t, w)
	if tracked, _ := payload["tracked"].(bool); tracked {
		t.Fatal("expected tracked=false after unload")
	}
}

func TestGetObraViewCount(t *testing.T) {
	engine, gdb, cleanup := setupAppTest(t)
	defer cleanup()

	obra := seedObra(t, gdb, "retrato")

	for _, session := range []string{"s1", "s2"} {
		view := &db.ObraView{ObraID: obra.ID, SessionID: session}
		if err := gdb.Create(view).Error; err != nil {
			t.Fatalf("failed to seed view: %v", err)
		}
	}

	w, _ := doJSON(t, engine, http.MethodGet, fmt.Sprintf("/api/obras/%d/views", obra.ID), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	payload := decodeJSONBody(t, w)
	if got, _ := payload["view_count"].(float64); got != 2 {
		t.Fatalf("expected view_count 2, got %v", payload["view_count"])
	}
}
