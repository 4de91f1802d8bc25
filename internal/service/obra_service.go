package service

import (
	"errors"
	"strings"

	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"gorm.io/gorm"
)

var (
	ErrObraNotFound      = errors.New("obra not found")
	ErrObraTitleMissing  = errors.New("obra title is required")
	ErrObraImageMissing  = errors.New("obra image is required")
	ErrObraStatusInvalid = errors.New("obra status is invalid")
	ErrObraNotOwned      = errors.New("obra does not belong to user")
)

const (
	ObraStatusPublished = "published"
	ObraStatusDraft     = "draft"
)

// ObraService 负责作品的增删改查。
type ObraService struct {
	db *gorm.DB
}

// ObraFilter 描述作品列表的过滤条件。
type ObraFilter struct {
	Search  string
	Status  string
	UserID  uint
	Page    int
	PerPage int
}

// ObraListResult 聚合分页后的作品列表。
type ObraListResult struct {
	Items      []db.Obra
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ObraInput 表示创建或更新作品时可设置的字段。
type ObraInput struct {
	Title       string
	Description string
	ImageURL    string
	ImageWidth  int
	ImageHeight int
	Status      string
	SortOrder   int
}

// NewObraService 创建 ObraService 实例。
func NewObraService(gdb *gorm.DB) *ObraService {
	return &ObraService{db: gdb}
}

// List 按过滤条件返回作品。
func (s *ObraService) List(filter ObraFilter) (ObraListResult, error) {
	result := ObraListResult{
		Page:    normalizePage(filter.Page),
		PerPage: normalizePerPage(filter.PerPage, 12),
	}

	query := s.db.Model(&db.Obra{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Count(&result.Total).Error; err != nil {
		return result, err
	}

	result.TotalPages = calculateTotalPages(result.Total, result.PerPage)
	offset := (result.Page - 1) * result.PerPage

	if err := query.Order("sort_order desc").Order("created_at desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Items).Error; err != nil {
		return result, err
	}

	return result, nil
}

// ListPublishedByArtist 返回某位艺术家已发布的作品。
func (s *ObraService) ListPublishedByArtist(userID uint, page, perPage int) (ObraListResult, error) {
	return s.List(ObraFilter{
		UserID:  userID,
		Status:  ObraStatusPublished,
		Page:    page,
		PerPage: perPage,
	})
}

// Get 按 ID 获取作品。
func (s *ObraService) Get(id uint) (*db.Obra, error) {
	var item db.Obra
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrObraNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create 为指定用户创建作品。
func (s *ObraService) Create(userID uint, input ObraInput) (*db.Obra, error) {
	if err := validateObraInput(input); err != nil {
		return nil, err
	}

	sortOrder := input.SortOrder
	if sortOrder == 0 {
		order, err := s.nextSortOrder(userID)
		if err != nil {
			return nil, err
		}
		sortOrder = order
	}

	item := db.Obra{
		UserID:      userID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		ImageURL:    strings.TrimSpace(input.ImageURL),
		ImageWidth:  input.ImageWidth,
		ImageHeight: input.ImageHeight,
		Status:      normalizeObraStatus(input.Status),
		SortOrder:   sortOrder,
	}

	if err := s.db.Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Update 修改作品，仅作品所有者可操作。
func (s *ObraService) Update(id, userID uint, input ObraInput) (*db.Obra, error) {
	if err := validateObraInput(input); err != nil {
		return nil, err
	}

	var item db.Obra
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrObraNotFound
		}
		return nil, err
	}

	if item.UserID != userID {
		return nil, ErrObraNotOwned
	}

	item.Title = strings.TrimSpace(input.Title)
	item.Description = strings.TrimSpace(input.Description)
	item.ImageURL = strings.TrimSpace(input.ImageURL)
	item.ImageWidth = input.ImageWidth
	item.ImageHeight = input.ImageHeight
	item.Status = normalizeObraStatus(input.Status)
	item.SortOrder = input.SortOrder

	if err := s.db.Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete 删除作品，仅作品所有者或管理员可操作。
func (s *ObraService) Delete(id, userID uint, isAdmin bool) error {
	var item db.Obra
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrObraNotFound
		}
		return err
	}

	if !isAdmin && item.UserID != userID {
		return ErrObraNotOwned
	}

	return s.db.Delete(&item).Error
}

func validateObraInput(input ObraInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return ErrObraTitleMissing
	}
	if strings.TrimSpace(input.ImageURL) == "" {
		return ErrObraImageMissing
	}
	status := normalizeObraStatus(input.Status)
	if status != ObraStatusPublished && status != ObraStatusDraft {
		return ErrObraStatusInvalid
	}
	return nil
}

func normalizeObraStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return ObraStatusPublished
	}
	return status
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func normalizePerPage(perPage, fallback int) int {
	if perPage <= 0 {
		return fallback
	}
	return perPage
}

func calculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func (s *ObraService) nextSortOrder(userID uint) (int, error) {
	var maxOrder int
	if err := s.db.Model(&db.Obra{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	return maxOrder + 1, nil
}
