package db

import "time"

// SiteVisit 记录一次匿名会话在站点上的停留情况。
// SessionID 为唯一键，保证每个会话至多创建一条记录；
// DurationSeconds 是创建后唯一可变的字段，始终覆盖写入绝对流逝秒数。
type SiteVisit struct {
	ID              uint   `gorm:"primaryKey"`
	SessionID       string `gorm:"size:64;uniqueIndex"`
	IPAddress       string `gorm:"size:45"`
	Country         string `gorm:"size:100"`
	City            string `gorm:"size:100"`
	Browser         string `gorm:"size:100"`
	OS              string `gorm:"size:100"`
	DeviceType      string `gorm:"size:50"`
	DurationSeconds int64  `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName 指定自定义表名。
func (SiteVisit) TableName() string {
	return "site_visits"
}

// ObraView 记录一个会话对单件作品的浏览。
// 同一会话重复打开同一作品会生成新的记录，浏览量按记录数聚合得出。
type ObraView struct {
	ID              uint   `gorm:"primaryKey"`
	ObraID          uint   `gorm:"index"`
	SessionID       string `gorm:"size:64;index"`
	IPAddress       string `gorm:"size:45"`
	Country         string `gorm:"size:100"`
	City            string `gorm:"size:100"`
	DurationSeconds int64  `gorm:"default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName 指定自定义表名。
func (ObraView) TableName() string {
	return "obra_views"
}
