package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletlessUser 无钱包用户表（以邮箱唯一标识）
type WalletlessUser struct {
	ID         uint           `gorm:"primarykey" json:"id"`              // 主键
	Email      string         `gorm:"uniqueIndex;not null" json:"email"` // 邮箱
	VerifiedAt *time.Time     `gorm:"index" json:"verified_at"`          // 首次验证码校验通过时间
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                        // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间

	// 关联
	Keys []WalletlessKey `gorm:"foreignKey:UserID" json:"keys,omitempty"` // 各链托管钱包
}

// TableName 指定表名
func (WalletlessUser) TableName() string {
	return "walletless_users"
}
