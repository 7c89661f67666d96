package models

import (
	"time"
)

// ClaimSession 领取会话表（一次领取尝试）
type ClaimSession struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                           // 主键
	DropID     uint       `gorm:"not null;index" json:"drop_id"`                                  // 所属 Drop ID
	TokenHash  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`                 // 令牌摘要（sha256 hex，原始令牌不落库）
	Status     string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"` // 状态（active/consumed/expired）
	IPHash     string     `gorm:"type:varchar(64)" json:"-"`                                      // 请求方 IP 摘要（仅审计用）
	ExpiresAt  time.Time  `gorm:"index;not null" json:"expires_at"`                               // 过期时间
	ConsumedAt *time.Time `json:"consumed_at"`                                                    // 消费时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                                        // 创建时间

	// 关联
	Drop Drop `gorm:"foreignKey:DropID" json:"drop,omitempty"` // 所属 Drop
}

// TableName 指定表名
func (ClaimSession) TableName() string {
	return "claim_sessions"
}

// Expired 判断会话是否已过期
func (s *ClaimSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
