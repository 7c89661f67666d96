package repository

import (
	"errors"
	"strings"

	"github.com/mintoria-api/internal/models"

	"gorm.io/gorm"
)

// LocationRepository 地点数据访问接口
type LocationRepository interface {
	List(filter LocationListFilter) ([]models.Location, int64, error)
	GetByID(id uint) (*models.Location, error)
	GetBySlug(slug string) (*models.Location, error)
	Create(location *models.Location) error
	Update(location *models.Location) error
	Delete(id uint) error
	CountBySlug(slug string, excludeID *uint) (int64, error)
	CountByProject(projectID uint) (int64, error)
}

// GormLocationRepository GORM 实现
type GormLocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository 创建地点仓库
func NewLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// List 地点列表
func (r *GormLocationRepository) List(filter LocationListFilter) ([]models.Location, int64, error) {
	var locations []models.Location

	query := r.db.Model(&models.Location{})
	if filter.ProjectID > 0 {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		condition, argCount := buildLikeCondition(r.db, []string{"slug", "name", "address"})
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}
	if filter.WithProject {
		query = query.Preload("Project")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("created_at DESC").Find(&locations).Error; err != nil {
		return nil, 0, err
	}

	return locations, total, nil
}

// GetByID 按ID获取地点
func (r *GormLocationRepository) GetByID(id uint) (*models.Location, error) {
	if id == 0 {
		return nil, nil
	}
	var location models.Location
	if err := r.db.First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// GetBySlug 按 slug 获取地点
func (r *GormLocationRepository) GetBySlug(slug string) (*models.Location, error) {
	var location models.Location
	if err := r.db.Preload("Project").Where("slug = ?", slug).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// Create 创建地点
func (r *GormLocationRepository) Create(location *models.Location) error {
	return r.db.Create(location).Error
}

// Update 更新地点
func (r *GormLocationRepository) Update(location *models.Location) error {
	return r.db.Save(location).Error
}

// Delete 删除地点
func (r *GormLocationRepository) Delete(id uint) error {
	return r.db.Delete(&models.Location{}, id).Error
}

// CountBySlug 统计 slug 重复数量
func (r *GormLocationRepository) CountBySlug(slug string, excludeID *uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Location{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByProject 统计项目下的地点数量
func (r *GormLocationRepository) CountByProject(projectID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Location{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
