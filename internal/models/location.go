package models

import (
	"time"

	"gorm.io/gorm"
)

// Location 物理地点表（访客在此扫码领取）
type Location struct {
	ID          uint           `gorm:"primarykey" json:"id"`               // 主键
	ProjectID   uint           `gorm:"not null;index" json:"project_id"`   // 所属项目ID
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`   // 唯一标识
	Name        string         `gorm:"not null" json:"name"`               // 地点名称
	Description string         `gorm:"type:text" json:"description"`       // 地点描述
	Address     string         `gorm:"type:varchar(500)" json:"address"`   // 物理地址
	ImageURL    string         `gorm:"type:varchar(500)" json:"image_url"` // 地点图片
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`            // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                         // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                     // 软删除时间

	// 关联
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"` // 所属项目
	Drops   []Drop  `gorm:"foreignKey:LocationID" json:"drops,omitempty"`  // Drop 列表
}

// TableName 指定表名
func (Location) TableName() string {
	return "locations"
}
