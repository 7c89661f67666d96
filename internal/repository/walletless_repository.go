package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/mintoria-api/internal/models"

	"gorm.io/gorm"
)

// ErrKeyExists 唯一约束冲突：(用户, 链) 的托管钱包已存在
var ErrKeyExists = errors.New("walletless key already exists")

// WalletlessRepository 无钱包用户与托管钱包数据访问接口
type WalletlessRepository interface {
	GetUserByEmail(email string) (*models.WalletlessUser, error)
	GetUserByID(id uint) (*models.WalletlessUser, error)
	CreateUser(user *models.WalletlessUser) error
	MarkUserVerified(id uint, verifiedAt time.Time) error
	GetKey(userID uint, chain string) (*models.WalletlessKey, error)
	CreateKey(key *models.WalletlessKey) error
	ListKeysByUser(userID uint) ([]models.WalletlessKey, error)
	CountKeys(userID uint, chain string) (int64, error)
}

// GormWalletlessRepository GORM 实现
type GormWalletlessRepository struct {
	db *gorm.DB
}

// NewWalletlessRepository 创建无钱包用户仓库
func NewWalletlessRepository(db *gorm.DB) *GormWalletlessRepository {
	return &GormWalletlessRepository{db: db}
}

// GetUserByEmail 按邮箱获取无钱包用户
func (r *GormWalletlessRepository) GetUserByEmail(email string) (*models.WalletlessUser, error) {
	if email == "" {
		return nil, nil
	}
	var user models.WalletlessUser
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID 按ID获取无钱包用户
func (r *GormWalletlessRepository) GetUserByID(id uint) (*models.WalletlessUser, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.WalletlessUser
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser 创建无钱包用户
func (r *GormWalletlessRepository) CreateUser(user *models.WalletlessUser) error {
	return r.db.Create(user).Error
}

// MarkUserVerified 标记用户首次验证通过时间
func (r *GormWalletlessRepository) MarkUserVerified(id uint, verifiedAt time.Time) error {
	return r.db.Model(&models.WalletlessUser{}).
		Where("id = ? AND verified_at IS NULL", id).
		Update("verified_at", verifiedAt).Error
}

// GetKey 获取 (用户, 链) 的托管钱包
func (r *GormWalletlessRepository) GetKey(userID uint, chain string) (*models.WalletlessKey, error) {
	if userID == 0 || chain == "" {
		return nil, nil
	}
	var key models.WalletlessKey
	if err := r.db.Where("user_id = ? AND chain = ?", userID, chain).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

// CreateKey 创建托管钱包，唯一约束冲突时返回 ErrKeyExists
func (r *GormWalletlessRepository) CreateKey(key *models.WalletlessKey) error {
	if err := r.db.Create(key).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrKeyExists
		}
		return err
	}
	return nil
}

// ListKeysByUser 列出用户全部托管钱包
func (r *GormWalletlessRepository) ListKeysByUser(userID uint) ([]models.WalletlessKey, error) {
	var keys []models.WalletlessKey
	if err := r.db.Where("user_id = ?", userID).Order("chain ASC").Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// CountKeys 统计 (用户, 链) 的托管钱包行数
func (r *GormWalletlessRepository) CountKeys(userID uint, chain string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.WalletlessKey{}).
		Where("user_id = ? AND chain = ?", userID, chain).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// isUniqueViolation 判断是否为唯一约束冲突，兼容 sqlite 与 postgres 的报错文案
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "unique failed") ||
		strings.Contains(message, "duplicate key")
}
