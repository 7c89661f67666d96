package repository

import (
	"errors"

	"github.com/mintoria-api/internal/models"

	"gorm.io/gorm"
)

// MintRepository 铸造流水数据访问接口
type MintRepository interface {
	Create(mint *models.Mint) error
	GetByID(id uint) (*models.Mint, error)
	GetByClaimSessionID(sessionID uint) (*models.Mint, error)
	List(filter MintListFilter) ([]models.Mint, int64, error)
	CountByDrop(dropID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormMintRepository
	Transaction(fn func(tx *gorm.DB) error) error
}

// GormMintRepository GORM 实现
type GormMintRepository struct {
	db *gorm.DB
}

// NewMintRepository 创建铸造流水仓库
func NewMintRepository(db *gorm.DB) *GormMintRepository {
	return &GormMintRepository{db: db}
}

// WithTx 返回绑定到事务的仓库实例
func (r *GormMintRepository) WithTx(tx *gorm.DB) *GormMintRepository {
	if tx == nil {
		return r
	}
	return &GormMintRepository{db: tx}
}

// Transaction 在仓库所属连接上开启事务
func (r *GormMintRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 追加铸造流水
func (r *GormMintRepository) Create(mint *models.Mint) error {
	return r.db.Create(mint).Error
}

// GetByID 按ID获取铸造流水
func (r *GormMintRepository) GetByID(id uint) (*models.Mint, error) {
	if id == 0 {
		return nil, nil
	}
	var mint models.Mint
	if err := r.db.First(&mint, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mint, nil
}

// GetByClaimSessionID 按领取会话获取铸造流水（幂等返回用）
func (r *GormMintRepository) GetByClaimSessionID(sessionID uint) (*models.Mint, error) {
	if sessionID == 0 {
		return nil, nil
	}
	var mint models.Mint
	if err := r.db.Where("claim_session_id = ?", sessionID).First(&mint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mint, nil
}

// List 铸造流水列表
func (r *GormMintRepository) List(filter MintListFilter) ([]models.Mint, int64, error) {
	var mints []models.Mint

	query := r.db.Model(&models.Mint{})
	if filter.DropID > 0 {
		query = query.Where("drop_id = ?", filter.DropID)
	}
	if filter.Chain != "" {
		query = query.Where("chain = ?", filter.Chain)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.WithDrop {
		query = query.Preload("Drop")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("created_at DESC, id DESC").Find(&mints).Error; err != nil {
		return nil, 0, err
	}

	return mints, total, nil
}

// CountByDrop 统计某 Drop 的铸造流水数量
func (r *GormMintRepository) CountByDrop(dropID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Mint{}).Where("drop_id = ?", dropID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
