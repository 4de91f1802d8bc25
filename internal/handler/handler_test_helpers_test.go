package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"github.com/jmoka/minhas-obras-sub000/internal/handler"
	"github.com/jmoka/minhas-obras-sub000/internal/router"
	"github.com/jmoka/minhas-obras-sub000/internal/service"
	"github.com/jmoka/minhas-obras-sub000/internal/tracking"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ginOnce sync.Once

// offlineGeoDoer 让地理位置查询立即失败，测试不依赖外部服务。
type offlineGeoDoer struct{}

func (offlineGeoDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("geo lookup disabled in tests")
}

func setupAppTest(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	t.Helper()

	ginOnce.Do(func() {
		gin.SetMode(gin.TestMode)
	})

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Obra{}, &db.SiteVisit{}, &db.ObraView{}, &db.SystemSetting{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	geo := service.NewGeoService("http://geo.test/json", time.Hour, quiet)
	geo.SetHTTPClient(offlineGeoDoer{})

	trackers := tracking.NewRegistry(time.Minute, quiet)

	uploadDir := t.TempDir()
	api := handler.NewAPI(gdb, geo, trackers, quiet, uploadDir, "/static/uploads")
	engine := router.SetupRouter(api, "test-secret", uploadDir, "/static/uploads")

	return engine, gdb, func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// doJSON 发送一个 JSON 请求，携带之前响应中累积的 Cookie。
func doJSON(t *testing.T, engine *gin.Engine, method, target string, body any, cookies []*http.Cookie) (*httptest.ResponseRecorder, []*http.Cookie) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w, mergeCookies(cookies, w.Result().Cookies())
}

func mergeCookies(existing, fresh []*http.Cookie) []*http.Cookie {
	merged := make([]*http.Cookie, 0, len(existing)+len(fresh))
	byName := make(map[string]int)

	for _, cookie := range existing {
		byName[cookie.Name] = len(merged)
		merged = append(merged, cookie)
	}
	for _, cookie := range fresh {
		if idx, ok := byName[cookie.Name]; ok {
			merged[idx] = cookie
			continue
		}
		byName[cookie.Name] = len(merged)
		merged = append(merged, cookie)
	}

	return merged
}

func decodeJSONBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
	return payload
}

// waitForCount 轮询直到 query 返回期望行数，后台写入完成前不会通过。
func waitForCount(t *testing.T, expected int64, what string, query func() (int64, error)) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var last int64
	for time.Now().Before(deadline) {
		count, err := query()
		if err != nil {
			t.Fatalf("count query for %s failed: %v", what, err)
		}
		last = count
		if count == expected {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d %s, got %d", expected, what, last)
}

func registerUser(t *testing.T, engine *gin.Engine, username string) []*http.Cookie {
	t.Helper()

	w, cookies := doJSON(t, engine, http.MethodPost, "/auth/register", gin.H{
		"username": username,
		"password": "senha-de-teste",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", w.Code, w.Body.String())
	}
	return cookies
}

func approveUser(t *testing.T, gdb *gorm.DB, username string) {
	t.Helper()

	if err := gdb.Model(&db.User{}).Where("username = ?", username).Update("blocked", false).Error; err != nil {
		t.Fatalf("failed to approve user: %v", err)
	}
}
