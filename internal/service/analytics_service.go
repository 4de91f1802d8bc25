package service

import (
	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"gorm.io/gorm"
)

// AnalyticsService 负责聚合访问与浏览数据，供管理端报表使用。
// 不维护独立的聚合实体，所有数字都在读取时按记录数推导。
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService 创建 AnalyticsService 实例。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb}
}

// SiteOverview 聚合站点层面的访问数据及热门作品。
type SiteOverview struct {
	TotalVisits         int64
	TotalObraViews      int64
	AverageDwellSeconds float64
	ObraCount           int64
	TopObras            []TopObraStat
}

// TopObraStat 描述热门作品的统计信息。
type TopObraStat struct {
	ObraID    uint
	Title     string
	ViewCount int64
}

// Overview 汇总全站访问量、作品浏览量与平均停留时长。
func (s *AnalyticsService) Overview(limit int) (SiteOverview, error) {
	if limit <= 0 {
		limit = 5
	}

	var overview SiteOverview

	if err := s.db.Model(&db.SiteVisit{}).Count(&overview.TotalVisits).Error; err != nil {
		return overview, err
	}

	if err := s.db.Model(&db.ObraView{}).Count(&overview.TotalObraViews).Error; err != nil {
		return overview, err
	}

	if overview.TotalVisits > 0 {
		var avg struct {
			AvgDwell float64
		}
		if err := s.db.Model(&db.SiteVisit{}).
			Select("COALESCE(AVG(duration_seconds), 0) AS avg_dwell").
			Scan(&avg).Error; err != nil {
			return overview, err
		}
		overview.AverageDwellSeconds = avg.AvgDwell
	}

	if err := s.db.Model(&db.Obra{}).Count(&overview.ObraCount).Error; err != nil {
		return overview, err
	}

	var topObras []TopObraStat
	if err := s.db.Table("obra_views ov").
		Select("ov.obra_id, o.title, COUNT(ov.id) AS view_count").
		Joins("JOIN obras o ON o.id = ov.obra_id").
		Where("o.deleted_at IS NULL").
		Group("ov.obra_id, o.title").
		Order("view_count DESC").
		Limit(limit).
		Scan(&topObras).Error; err != nil {
		return overview, err
	}

	overview.TopObras = topObras
	return overview, nil
}

// ViewCountMap 返回指定作品的浏览量，没有浏览记录的作品不会出现在结果中。
func (s *AnalyticsService) ViewCountMap(obraIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(obraIDs))
	if len(obraIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ObraID uint
		Count  int64
	}
	if err := s.db.Model(&db.ObraView{}).
		Select("obra_id, COUNT(id) AS count").
		Where("obra_id IN ?", obraIDs).
		Group("obra_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ObraID] = row.Count
	}

	return result, nil
}
