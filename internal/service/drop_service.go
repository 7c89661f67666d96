package service

import (
	"errors"
	"fmt"

	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
	"github.com/mintoria-api/internal/repository"
)

// DropService Drop 业务服务
type DropService struct {
	repo         repository.DropRepository
	locationRepo repository.LocationRepository
	mintRepo     repository.MintRepository
}

// NewDropService 创建 Drop 服务
func NewDropService(
	repo repository.DropRepository,
	locationRepo repository.LocationRepository,
	mintRepo repository.MintRepository,
) *DropService {
	return &DropService{repo: repo, locationRepo: locationRepo, mintRepo: mintRepo}
}

// DropInput 创建/更新 Drop 输入
type DropInput struct {
	LocationID    uint
	Name          string
	Description   string
	ImageURL      string
	MetadataURI   string
	Attributes    map[string]interface{}
	EnabledChains []string
	Supply        int
}

// List Drop 列表
func (s *DropService) List(filter repository.DropListFilter) ([]models.Drop, int64, error) {
	return s.repo.List(filter)
}

// Get 按ID获取 Drop
func (s *DropService) Get(id uint) (*models.Drop, error) {
	drop, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNotFound
	}
	return drop, nil
}

// Create 创建 Drop（初始为草稿）
func (s *DropService) Create(input DropInput) (*models.Drop, error) {
	location, err := s.locationRepo.GetByID(input.LocationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrNotFound
	}
	if err := validateEnabledChains(input.EnabledChains); err != nil {
		return nil, err
	}
	if input.Supply < 0 {
		return nil, errors.New("供应上限不能为负数")
	}

	drop := models.Drop{
		LocationID:     input.LocationID,
		Name:           input.Name,
		Description:    input.Description,
		ImageURL:       input.ImageURL,
		MetadataURI:    input.MetadataURI,
		AttributesJSON: models.JSON(input.Attributes),
		EnabledChains:  models.StringArray(input.EnabledChains),
		Supply:         input.Supply,
		Status:         constants.DropStatusDraft,
	}
	if err := s.repo.Create(&drop); err != nil {
		return nil, err
	}
	return &drop, nil
}

// Update 更新 Drop，供应上限不可低于已铸造数量
func (s *DropService) Update(id uint, input DropInput) (*models.Drop, error) {
	drop, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNotFound
	}
	if err := validateEnabledChains(input.EnabledChains); err != nil {
		return nil, err
	}
	if input.Supply < 0 {
		return nil, errors.New("供应上限不能为负数")
	}
	if input.Supply > 0 && input.Supply < drop.MintedCount {
		return nil, fmt.Errorf("供应上限不能低于已铸造数量 %d", drop.MintedCount)
	}

	if input.LocationID != drop.LocationID {
		location, err := s.locationRepo.GetByID(input.LocationID)
		if err != nil {
			return nil, err
		}
		if location == nil {
			return nil, ErrNotFound
		}
	}

	drop.LocationID = input.LocationID
	drop.Name = input.Name
	drop.Description = input.Description
	drop.ImageURL = input.ImageURL
	drop.MetadataURI = input.MetadataURI
	drop.AttributesJSON = models.JSON(input.Attributes)
	drop.EnabledChains = models.StringArray(input.EnabledChains)
	drop.Supply = input.Supply

	if err := s.repo.Update(drop); err != nil {
		return nil, err
	}
	return drop, nil
}

// Publish 发布 Drop 并设为所在地点唯一活跃发放
func (s *DropService) Publish(id uint) (*models.Drop, error) {
	drop, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNotFound
	}

	published, err := s.repo.Publish(id)
	if err != nil {
		return nil, err
	}

	logger.Infow("drop_published",
		"drop_id", id,
		"location_id", published.LocationID,
		"supply", published.Supply,
	)
	return published, nil
}

// Deactivate 停用 Drop（保留已发布状态，不再作为地点活跃发放）
func (s *DropService) Deactivate(id uint) (*models.Drop, error) {
	drop, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if drop == nil {
		return nil, ErrNotFound
	}

	drop.IsActive = false
	if err := s.repo.Update(drop); err != nil {
		return nil, err
	}

	logger.Infow("drop_deactivated", "drop_id", id, "location_id", drop.LocationID)
	return drop, nil
}

// Delete 删除 Drop，已有铸造记录时拒绝
func (s *DropService) Delete(id uint) error {
	drop, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if drop == nil {
		return ErrNotFound
	}

	count, err := s.mintRepo.CountByDrop(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDropHasMints
	}
	return s.repo.Delete(id)
}

// validateEnabledChains 校验链列表，空列表表示全部支持的链
func validateEnabledChains(chains []string) error {
	for _, c := range chains {
		supported := false
		for _, s := range constants.SupportedChains {
			if c == s {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Errorf("不支持的链: %s", c)
		}
	}
	return nil
}
