package service

import (
	"fmt"
	"strings"

	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName         string
	SiteLogoURL      string
	GeoLookupBaseURL string
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName         string
	SiteLogoURL      string
	GeoLookupBaseURL string
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db *gorm.DB
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{db: gdb}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeySiteLogoURL,
	db.SettingKeyGeoLookupBaseURL,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{SiteName: "Minhas Obras"}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeySiteName:
			if strings.TrimSpace(record.Value) != "" {
				result.SiteName = record.Value
			}
		case db.SettingKeySiteLogoURL:
			result.SiteLogoURL = record.Value
		case db.SettingKeyGeoLookupBaseURL:
			result.GeoLookupBaseURL = record.Value
		}
	}

	return result, nil
}

// UpdateSettings 写入系统设置，逐键 upsert。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) error {
	values := map[string]string{
		db.SettingKeySiteName:         strings.TrimSpace(input.SiteName),
		db.SettingKeySiteLogoURL:      strings.TrimSpace(input.SiteLogoURL),
		db.SettingKeyGeoLookupBaseURL: strings.TrimSpace(input.GeoLookupBaseURL),
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			setting := db.SystemSetting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error; err != nil {
				return fmt.Errorf("save setting %s: %w", key, err)
			}
		}
		return nil
	})
}
