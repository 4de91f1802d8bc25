package service

import (
	"errors"

	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"github.com/mssola/user_agent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSessionIDMissing 表示调用方未提供会话标识。
	ErrSessionIDMissing = errors.New("session id is required")
	// ErrObraViewNotFound 表示要更新时长的浏览记录不存在。
	ErrObraViewNotFound = errors.New("obra view record not found")
)

// VisitService 负责站点访问与作品浏览记录的写入和聚合。
type VisitService struct {
	db *gorm.DB
}

// NewVisitService 创建 VisitService 实例。
func NewVisitService(gdb *gorm.DB) *VisitService {
	return &VisitService{db: gdb}
}

// SiteVisitInput 描述创建站点访问记录所需的字段。
type SiteVisitInput struct {
	SessionID string
	IPAddress string
	Country   string
	City      string
	UserAgent string
}

// RecordSiteVisit 为会话创建站点访问记录。
// session_id 上的 ON CONFLICT DO NOTHING 保证并发重复调用也只落一条记录。
func (s *VisitService) RecordSiteVisit(in SiteVisitInput) error {
	if in.SessionID == "" {
		return ErrSessionIDMissing
	}

	visit := db.SiteVisit{
		SessionID: in.SessionID,
		IPAddress: maskIP(in.IPAddress),
		Country:   in.Country,
		City:      in.City,
	}
	enrichUserAgent(&visit, in.UserAgent)

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(&visit).Error
}

// ReportSiteDuration 覆盖写入会话的绝对停留秒数。
// 覆盖而非累加，使得定时器、页面隐藏与卸载钩子交错触发时保持幂等。
func (s *VisitService) ReportSiteDuration(sessionID string, seconds int64) error {
	if sessionID == "" {
		return ErrSessionIDMissing
	}
	if seconds < 0 {
		seconds = 0
	}

	return s.db.Model(&db.SiteVisit{}).
		Where("session_id = ?", sessionID).
		Update("duration_seconds", seconds).Error
}

// ObraViewInput 描述创建作品浏览记录所需的字段。
type ObraViewInput struct {
	ObraID    uint
	SessionID string
	IPAddress string
	Country   string
	City      string
}

// RecordObraView 为 (作品, 会话) 创建一条新的浏览记录并返回其 ID。
// 不做去重：同一会话再次打开同一作品会生成新记录。
func (s *VisitService) RecordObraView(in ObraViewInput) (uint, error) {
	if in.SessionID == "" {
		return 0, ErrSessionIDMissing
	}
	if in.ObraID == 0 {
		return 0, errors.New("invalid obra id")
	}

	view := db.ObraView{
		ObraID:    in.ObraID,
		SessionID: in.SessionID,
		IPAddress: maskIP(in.IPAddress),
		Country:   in.Country,
		City:      in.City,
	}

	if err := s.db.Create(&view).Error; err != nil {
		return 0, err
	}

	return view.ID, nil
}

// ReportObraDuration 覆盖写入指定浏览记录的绝对停留秒数。
func (s *VisitService) ReportObraDuration(viewID uint, seconds int64) error {
	if viewID == 0 {
		return ErrObraViewNotFound
	}
	if seconds < 0 {
		seconds = 0
	}

	result := s.db.Model(&db.ObraView{}).
		Where("id = ?", viewID).
		Update("duration_seconds", seconds)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrObraViewNotFound
	}

	return nil
}

// ObraViewCount 返回作品的累计浏览量，按记录数聚合。
func (s *VisitService) ObraViewCount(obraID uint) (int64, error) {
	var count int64
	if err := s.db.Model(&db.ObraView{}).Where("obra_id = ?", obraID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// enrichUserAgent 从原始 User-Agent 解析浏览器、系统与设备类型。
func enrichUserAgent(visit *db.SiteVisit, rawUA string) {
	if rawUA == "" {
		return
	}

	ua := user_agent.New(rawUA)
	browserName, browserVer := ua.Browser()
	visit.Browser = browserName + " " + browserVer
	visit.OS = ua.OS()

	switch {
	case ua.Bot():
		visit.DeviceType = "Bot"
	case ua.Mobile():
		visit.DeviceType = "Mobile"
	default:
		visit.DeviceType = "Desktop"
	}
}

// maskIP 抹掉 IPv4 最后一段，IPv6 整体打码。
func maskIP(ip string) string {
	if ip == "" {
		return "unknown"
	}

	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == '.' {
			return ip[:i] + ".0"
		}
		if ip[i] == ':' {
			return "IPv6 (Masked)"
		}
	}
	return ip
}
