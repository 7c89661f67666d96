package repository

import (
	"errors"

	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/models"

	"gorm.io/gorm"
)

// DropRepository Drop 数据访问接口
type DropRepository interface {
	List(filter DropListFilter) ([]models.Drop, int64, error)
	GetByID(id uint) (*models.Drop, error)
	GetActiveByLocation(locationID uint) (*models.Drop, error)
	Create(drop *models.Drop) error
	Update(drop *models.Drop) error
	Delete(id uint) error
	Publish(id uint) (*models.Drop, error)
	IncrementMinted(id uint) (int64, error)
	DecrementMinted(id uint) (int64, error)
	CountByLocation(locationID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormDropRepository
}

// GormDropRepository GORM 实现
type GormDropRepository struct {
	db *gorm.DB
}

// NewDropRepository 创建 Drop 仓库
func NewDropRepository(db *gorm.DB) *GormDropRepository {
	return &GormDropRepository{db: db}
}

// WithTx 返回绑定到事务的仓库实例
func (r *GormDropRepository) WithTx(tx *gorm.DB) *GormDropRepository {
	if tx == nil {
		return r
	}
	return &GormDropRepository{db: tx}
}

// List Drop 列表
func (r *GormDropRepository) List(filter DropListFilter) ([]models.Drop, int64, error) {
	var drops []models.Drop

	query := r.db.Model(&models.Drop{})
	if filter.LocationID > 0 {
		query = query.Where("location_id = ?", filter.LocationID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.WithLocation {
		query = query.Preload("Location")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("created_at DESC").Find(&drops).Error; err != nil {
		return nil, 0, err
	}

	return drops, total, nil
}

// GetByID 按ID获取 Drop
func (r *GormDropRepository) GetByID(id uint) (*models.Drop, error) {
	if id == 0 {
		return nil, nil
	}
	var drop models.Drop
	if err := r.db.First(&drop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &drop, nil
}

// GetActiveByLocation 获取地点当前活跃的已发布 Drop
func (r *GormDropRepository) GetActiveByLocation(locationID uint) (*models.Drop, error) {
	if locationID == 0 {
		return nil, nil
	}
	var drop models.Drop
	if err := r.db.Where("location_id = ? AND status = ? AND is_active = ?",
		locationID, constants.DropStatusPublished, true).
		First(&drop).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &drop, nil
}

// Create 创建 Drop
func (r *GormDropRepository) Create(drop *models.Drop) error {
	return r.db.Create(drop).Error
}

// Update 更新 Drop
func (r *GormDropRepository) Update(drop *models.Drop) error {
	return r.db.Save(drop).Error
}

// Delete 删除 Drop
func (r *GormDropRepository) Delete(id uint) error {
	return r.db.Delete(&models.Drop{}, id).Error
}

// Publish 发布 Drop 并将其设为所在地点唯一活跃 Drop（同地点其余 Drop 取消活跃）
func (r *GormDropRepository) Publish(id uint) (*models.Drop, error) {
	if id == 0 {
		return nil, nil
	}
	var drop models.Drop
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&drop, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Drop{}).
			Where("location_id = ? AND id <> ?", drop.LocationID, drop.ID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Drop{}).
			Where("id = ?", drop.ID).
			Updates(map[string]interface{}{
				"status":    constants.DropStatusPublished,
				"is_active": true,
			}).Error; err != nil {
			return err
		}
		return tx.First(&drop, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &drop, nil
}

// IncrementMinted 原子递增已铸造计数，供应耗尽时不更新任何行
func (r *GormDropRepository) IncrementMinted(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid drop id")
	}
	result := r.db.Model(&models.Drop{}).
		Where("id = ? AND (supply = 0 OR minted_count < supply)", id).
		UpdateColumn("minted_count", gorm.Expr("minted_count + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DecrementMinted 回退一次铸造预占（链上调用失败时释放名额）
func (r *GormDropRepository) DecrementMinted(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid drop id")
	}
	result := r.db.Model(&models.Drop{}).
		Where("id = ? AND minted_count > 0", id).
		UpdateColumn("minted_count", gorm.Expr("minted_count - 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountByLocation 统计地点下的 Drop 数量
func (r *GormDropRepository) CountByLocation(locationID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Drop{}).Where("location_id = ?", locationID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
