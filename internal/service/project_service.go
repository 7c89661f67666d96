package service

import (
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"
)

// ProjectService 项目业务服务
type ProjectService struct {
	repo         repository.ProjectRepository
	locationRepo repository.LocationRepository
}

// NewProjectService 创建项目服务
func NewProjectService(repo repository.ProjectRepository, locationRepo repository.LocationRepository) *ProjectService {
	return &ProjectService{repo: repo, locationRepo: locationRepo}
}

// ProjectInput 创建/更新项目输入
type ProjectInput struct {
	Slug        string
	Name        string
	Description string
	ImageURL    string
}

// List 项目列表
func (s *ProjectService) List(filter repository.ProjectListFilter) ([]models.Project, int64, error) {
	return s.repo.List(filter)
}

// Get 按ID获取项目
func (s *ProjectService) Get(id uint) (*models.Project, error) {
	project, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

// GetBySlug 按 slug 获取项目
func (s *ProjectService) GetBySlug(slug string) (*models.Project, error) {
	project, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}
	return project, nil
}

// Create 创建项目
func (s *ProjectService) Create(input ProjectInput) (*models.Project, error) {
	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	project := models.Project{
		Slug:        input.Slug,
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.Create(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Update 更新项目
func (s *ProjectService) Update(id uint, input ProjectInput) (*models.Project, error) {
	project, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	project.Slug = input.Slug
	project.Name = input.Name
	project.Description = input.Description
	project.ImageURL = input.ImageURL

	if err := s.repo.Update(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete 删除项目，存在地点时拒绝
func (s *ProjectService) Delete(id uint) error {
	project, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if project == nil {
		return ErrNotFound
	}

	count, err := s.locationRepo.CountByProject(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrProjectInUse
	}
	return s.repo.Delete(id)
}
