package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了艺术家账号模型。
// Blocked 默认为 true，表示账号处于等待管理员审核的状态，
// 只有管理员操作才能改变该标记。
type User struct {
	gorm.Model
	Username    string `gorm:"unique;not null"`
	Password    string `gorm:"not null"`
	DisplayName string `gorm:"size:120"`
	Bio         string `gorm:"type:text"`
	AvatarURL   string `gorm:"size:500"`
	IsAdmin     bool   `gorm:"default:false"`
	Blocked     bool   `gorm:"default:true"`
}

// EnsureAdmin 存在性检查：若提供的用户名与密码均非空且不存在对应账号，
// 则创建一个 bcrypt 哈希的管理员账号（预先审核通过）。
func EnsureAdmin(username, password string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Create(&User{
			Username: trimmedUser,
			Password: string(hashed),
			IsAdmin:  true,
			Blocked:  false,
		}).Error
	}

	return nil
}
