package service

import (
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"
)

// LocationService 地点业务服务
type LocationService struct {
	repo        repository.LocationRepository
	projectRepo repository.ProjectRepository
	dropRepo    repository.DropRepository
}

// NewLocationService 创建地点服务
func NewLocationService(
	repo repository.LocationRepository,
	projectRepo repository.ProjectRepository,
	dropRepo repository.DropRepository,
) *LocationService {
	return &LocationService{repo: repo, projectRepo: projectRepo, dropRepo: dropRepo}
}

// LocationInput 创建/更新地点输入
type LocationInput struct {
	ProjectID   uint
	Slug        string
	Name        string
	Description string
	Address     string
	ImageURL    string
}

// List 地点列表
func (s *LocationService) List(filter repository.LocationListFilter) ([]models.Location, int64, error) {
	return s.repo.List(filter)
}

// Get 按ID获取地点
func (s *LocationService) Get(id uint) (*models.Location, error) {
	location, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrNotFound
	}
	return location, nil
}

// LocationDetail 公开地点详情：地点与其当前活跃 Drop（可能为空）
type LocationDetail struct {
	Location   *models.Location `json:"location"`
	ActiveDrop *models.Drop     `json:"active_drop"`
}

// GetDetailBySlug 按 slug 获取地点及其活跃 Drop，游客扫码入口
func (s *LocationService) GetDetailBySlug(slug string) (*LocationDetail, error) {
	location, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrNotFound
	}
	drop, err := s.dropRepo.GetActiveByLocation(location.ID)
	if err != nil {
		return nil, err
	}
	return &LocationDetail{Location: location, ActiveDrop: drop}, nil
}

// Create 创建地点
func (s *LocationService) Create(input LocationInput) (*models.Location, error) {
	project, err := s.projectRepo.GetByID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}

	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	location := models.Location{
		ProjectID:   input.ProjectID,
		Slug:        input.Slug,
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.Create(&location); err != nil {
		return nil, err
	}
	return &location, nil
}

// Update 更新地点
func (s *LocationService) Update(id uint, input LocationInput) (*models.Location, error) {
	location, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrNotFound
	}

	if input.ProjectID != location.ProjectID {
		project, err := s.projectRepo.GetByID(input.ProjectID)
		if err != nil {
			return nil, err
		}
		if project == nil {
			return nil, ErrNotFound
		}
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	location.ProjectID = input.ProjectID
	location.Slug = input.Slug
	location.Name = input.Name
	location.Description = input.Description
	location.Address = input.Address
	location.ImageURL = input.ImageURL

	if err := s.repo.Update(location); err != nil {
		return nil, err
	}
	return location, nil
}

// Delete 删除地点，存在 Drop 时拒绝
func (s *LocationService) Delete(id uint) error {
	location, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if location == nil {
		return ErrNotFound
	}

	count, err := s.dropRepo.CountByLocation(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrLocationInUse
	}
	return s.repo.Delete(id)
}
