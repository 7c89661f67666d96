package repository

import (
	"errors"
	"time"

	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"

	"gorm.io/gorm"
)

// ClaimSessionRepository 领取会话数据访问接口
type ClaimSessionRepository interface {
	Create(session *models.ClaimSession) error
	GetByTokenHash(tokenHash string) (*models.ClaimSession, error)
	GetByID(id uint) (*models.ClaimSession, error)
	Consume(id uint, consumedAt time.Time) (int64, error)
	ExpireOverdue(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormClaimSessionRepository
}

// GormClaimSessionRepository GORM 实现
type GormClaimSessionRepository struct {
	db *gorm.DB
}

// NewClaimSessionRepository 创建领取会话仓库
func NewClaimSessionRepository(db *gorm.DB) *GormClaimSessionRepository {
	return &GormClaimSessionRepository{db: db}
}

// WithTx 返回绑定到事务的仓库实例
func (r *GormClaimSessionRepository) WithTx(tx *gorm.DB) *GormClaimSessionRepository {
	if tx == nil {
		return r
	}
	return &GormClaimSessionRepository{db: tx}
}

// Create 创建领取会话
func (r *GormClaimSessionRepository) Create(session *models.ClaimSession) error {
	return r.db.Create(session).Error
}

// GetByTokenHash 按令牌摘要获取会话
func (r *GormClaimSessionRepository) GetByTokenHash(tokenHash string) (*models.ClaimSession, error) {
	if tokenHash == "" {
		return nil, nil
	}
	var session models.ClaimSession
	if err := r.db.Preload("Drop").Where("token_hash = ?", tokenHash).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetByID 按ID获取会话
func (r *GormClaimSessionRepository) GetByID(id uint) (*models.ClaimSession, error) {
	if id == 0 {
		return nil, nil
	}
	var session models.ClaimSession
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Consume 将会话从 active 原子置为 consumed，并发调用仅一次成功
func (r *GormClaimSessionRepository) Consume(id uint, consumedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid claim session id")
	}
	result := r.db.Model(&models.ClaimSession{}).
		Where("id = ? AND status = ?", id, constants.ClaimSessionStatusActive).
		Updates(map[string]interface{}{
			"status":      constants.ClaimSessionStatusConsumed,
			"consumed_at": consumedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExpireOverdue 将过期未消费的会话批量置为 expired
func (r *GormClaimSessionRepository) ExpireOverdue(now time.Time) (int64, error) {
	result := r.db.Model(&models.ClaimSession{}).
		Where("status = ? AND expires_at < ?", constants.ClaimSessionStatusActive, now).
		Update("status", constants.ClaimSessionStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
