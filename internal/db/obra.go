package db

import "gorm.io/gorm"

// Obra 定义画廊作品模型
type Obra struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	Title       string `gorm:"size:200;not null"`
	Description string `gorm:"type:text"`
	ImageURL    string `gorm:"size:500"`
	ImageWidth  int
	ImageHeight int
	Status      string `gorm:"default:published"` // published, draft
	SortOrder   int    `gorm:"default:0"`
}
