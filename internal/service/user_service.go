package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoka/minhas-obras-sub000/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 表示用户不存在。
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken 表示用户名已被占用。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials 表示用户名或密码错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInputInvalid 表示注册或更新资料的输入不完整。
	ErrUserInputInvalid = errors.New("invalid user input")
)

// UserService 负责账号注册、认证、资料维护与审核状态管理。
type UserService struct {
	db *gorm.DB
}

// NewUserService 创建 UserService 实例。
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Register 创建一个新账号。新账号默认 Blocked=true，等待管理员审核。
func (s *UserService) Register(username, password, displayName string) (*db.User, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" || password == "" {
		return nil, ErrUserInputInvalid
	}
	if displayName == "" {
		displayName = username
	}

	var existing db.User
	err := s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := db.User{
		Username:    username,
		Password:    string(hashed),
		DisplayName: displayName,
		Blocked:     true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate 校验用户名和密码，成功时返回账号。
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// Get 按 ID 获取账号。
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// IsBlocked 读取账号的审核标记。账号不存在或查询失败时返回错误，
// 调用方应当视为"不放行"（门禁失败关闭）。
func (s *UserService) IsBlocked(id uint) (bool, error) {
	user, err := s.Get(id)
	if err != nil {
		return true, err
	}
	return user.Blocked, nil
}

// ProfileInput 表示用户可自行更新的资料字段。
type ProfileInput struct {
	DisplayName string
	Bio         string
	AvatarURL   string
}

// UpdateProfile 更新账号的展示资料。
func (s *UserService) UpdateProfile(id uint, input ProfileInput) (*db.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, ErrUserInputInvalid
	}

	user.DisplayName = displayName
	user.Bio = strings.TrimSpace(input.Bio)
	user.AvatarURL = strings.TrimSpace(input.AvatarURL)

	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers 返回全部账号，待审核的排在前面，供管理员审核列表使用。
func (s *UserService) ListUsers() ([]db.User, error) {
	var users []db.User
	if err := s.db.Order("blocked desc, created_at asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetBlocked 由管理员设置账号的审核标记。
func (s *UserService) SetBlocked(id uint, blocked bool) (*db.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	user.Blocked = blocked
	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("update blocked flag: %w", err)
	}
	return user, nil
}

// DeleteUser 删除账号及其全部作品。
func (s *UserService) DeleteUser(id uint) error {
	user, err := s.Get(id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&db.Obra{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}
