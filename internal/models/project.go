package models

import (
	"time"

	"gorm.io/gorm"
)

// Project 项目表（一个项目下挂多个物理地点）
type Project struct {
	ID          uint           `gorm:"primarykey" json:"id"`             // 主键
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"` // 唯一标识
	Name        string         `gorm:"not null" json:"name"`             // 项目名称
	Description string         `gorm:"type:text" json:"description"`     // 项目描述
	ImageURL    string         `gorm:"type:varchar(500)" json:"image_url"` // 封面图
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`          // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                       // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                   // 软删除时间

	// 关联
	Locations []Location `gorm:"foreignKey:ProjectID" json:"locations,omitempty"` // 地点列表
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}
