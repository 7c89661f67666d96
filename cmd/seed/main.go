package main

import (
	"github.com/mintoria-api/internal/config"
	"github.com/mintoria-api/internal/constants"
	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/models"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 示例项目
	project := models.Project{
		Slug:        "demo",
		Name:        "Demo Project",
		Description: "用于本地开发与联调的演示项目",
		ImageURL:    "https://images.unsplash.com/photo-1549144511-f099e773c147?w=800",
	}
	var existingProject models.Project
	if err := models.DB.Where("slug = ?", project.Slug).First(&existingProject).Error; err != nil {
		if err := models.DB.Create(&project).Error; err != nil {
			stdLog.Fatalf("Failed to create project %s: %v", project.Slug, err)
		}
		stdLog.Printf("Created project: %s", project.Slug)
	} else {
		project = existingProject
		stdLog.Printf("Project already exists: %s", project.Slug)
	}

	// 示例地点
	location := models.Location{
		ProjectID:   project.ID,
		Slug:        "eiffel",
		Name:        "Eiffel Tower",
		Description: "埃菲尔铁塔游客打卡点",
		Address:     "Champ de Mars, 5 Av. Anatole France, 75007 Paris",
		ImageURL:    "https://images.unsplash.com/photo-1511739001486-6bfe10ce785f?w=800",
	}
	var existingLocation models.Location
	if err := models.DB.Where("slug = ?", location.Slug).First(&existingLocation).Error; err != nil {
		if err := models.DB.Create(&location).Error; err != nil {
			stdLog.Fatalf("Failed to create location %s: %v", location.Slug, err)
		}
		stdLog.Printf("Created location: %s", location.Slug)
	} else {
		location = existingLocation
		stdLog.Printf("Location already exists: %s", location.Slug)
	}

	// 示例 Drop（已发布并激活）
	drop := models.Drop{
		LocationID:  location.ID,
		Name:        "Paris Visit 2026",
		Description: "2026 年到访埃菲尔铁塔的纪念凭证",
		ImageURL:    "https://images.unsplash.com/photo-1502602898657-3e91760cbb34?w=800",
		MetadataURI: "https://example.com/metadata.json",
		AttributesJSON: models.JSON(map[string]interface{}{
			"city": "Paris",
			"year": 2026,
		}),
		EnabledChains: models.StringArray(constants.SupportedChains),
		Supply:        1000,
		Status:        constants.DropStatusPublished,
		IsActive:      true,
	}
	var existingDrop models.Drop
	if err := models.DB.Where("location_id = ? AND name = ?", drop.LocationID, drop.Name).First(&existingDrop).Error; err != nil {
		if err := models.DB.Create(&drop).Error; err != nil {
			stdLog.Fatalf("Failed to create drop %s: %v", drop.Name, err)
		}
		stdLog.Printf("Created drop: %s", drop.Name)
	} else {
		stdLog.Printf("Drop already exists: %s", existingDrop.Name)
	}

	stdLog.Println("Seed data completed!")
}
