package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// GeoLocation 描述粗粒度的地理位置信息，查询失败时字段为空。
type GeoLocation struct {
	Country string
	City    string
}

type geoCacheEntry struct {
	location  GeoLocation
	expiresAt time.Time
}

// GeoService 通过第三方 HTTP 服务把 IP 解析为国家/城市。
// 结果按 IP 在内存中缓存 24 小时，降低重复查询量。
// 所有失败都降级为未知地理位置，不向调用方返回错误。
type GeoService struct {
	http   httpDoer
	logger *slog.Logger
	ttl    time.Duration

	mu      sync.Mutex
	baseURL string
	cache   map[string]geoCacheEntry
	now     func() time.Time
}

// NewGeoService 构造 GeoService，ttl 非正时回退到 24 小时。
func NewGeoService(baseURL string, ttl time.Duration, logger *slog.Logger) *GeoService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GeoService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		ttl:     ttl,
		cache:   make(map[string]geoCacheEntry),
		now:     time.Now,
	}
}

// SetBaseURL 在运行时切换查询服务地址，供系统设置覆盖启动配置。
// 空值保持当前地址不变；地址变化时清空缓存，避免新旧服务的结果混用。
func (s *GeoService) SetBaseURL(baseURL string) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if trimmed == s.baseURL {
		return
	}
	s.baseURL = trimmed
	s.cache = make(map[string]geoCacheEntry)
}

func (s *GeoService) currentBaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}

// SetHTTPClient 允许测试注入自定义 HTTP 客户端。
func (s *GeoService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	s.http = client
}

type geoLookupResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
	Message string `json:"message"`
}

// Lookup 解析 ip 对应的地理位置。
// 本地地址、非法输入与远端错误都返回零值 GeoLocation。
func (s *GeoService) Lookup(ctx context.Context, ip string) GeoLocation {
	trimmed := strings.TrimSpace(ip)
	if trimmed == "" || trimmed == "unknown" || trimmed == "127.0.0.1" || trimmed == "::1" {
		return GeoLocation{}
	}

	if cached, ok := s.cachedLocation(trimmed); ok {
		return cached
	}

	location, err := s.fetch(ctx, trimmed)
	if err != nil {
		s.logger.Warn("geo lookup failed", "ip", trimmed, "error", err)
		return GeoLocation{}
	}

	s.storeLocation(trimmed, location)
	return location
}

func (s *GeoService) cachedLocation(ip string) (GeoLocation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[ip]
	if !ok || s.now().After(entry.expiresAt) {
		return GeoLocation{}, false
	}
	return entry.location, true
}

func (s *GeoService) storeLocation(ip string, location GeoLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[ip] = geoCacheEntry{location: location, expiresAt: s.now().Add(s.ttl)}
}

func (s *GeoService) fetch(ctx context.Context, ip string) (GeoLocation, error) {
	baseURL := s.currentBaseURL()
	if baseURL == "" {
		return GeoLocation{}, fmt.Errorf("geo lookup base url not configured")
	}

	url := fmt.Sprintf("%s/%s", baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return GeoLocation{}, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return GeoLocation{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return GeoLocation{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return GeoLocation{}, fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var payload geoLookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return GeoLocation{}, err
	}

	if payload.Status != "" && payload.Status != "success" {
		return GeoLocation{}, fmt.Errorf("geo lookup rejected: %s", payload.Message)
	}

	return GeoLocation{Country: payload.Country, City: payload.City}, nil
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
