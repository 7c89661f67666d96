package models

import (
	"time"
)

// Mint 铸造流水表（只追加，成功调度后精确写入一行）
type Mint struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                  // 主键
	DropID         uint      `gorm:"not null;index" json:"drop_id"`                         // 所属 Drop ID
	ClaimSessionID *uint     `gorm:"uniqueIndex" json:"claim_session_id"`                   // 关联领取会话ID（唯一，保证每会话至多一行）
	Chain          string    `gorm:"type:varchar(20);not null;index" json:"chain"`          // 链标识
	Recipient      string    `gorm:"type:varchar(128);not null" json:"recipient"`           // 接收地址
	TxHash         string    `gorm:"type:varchar(128);index" json:"tx_hash"`                // 链上交易哈希
	ExplorerURL    string    `gorm:"type:varchar(500)" json:"explorer_url"`                 // 区块浏览器链接
	Status         string    `gorm:"type:varchar(20);not null;index" json:"status"`         // 状态（pending/confirmed/failed）
	Source         string    `gorm:"type:varchar(20);not null;default:''" json:"source"`    // 来源（walletless/external）
	RecipientEmail string    `gorm:"type:varchar(255)" json:"-"`                            // 无钱包流程的接收邮箱（不返回给前端）
	ErrorMessage   string    `gorm:"type:text" json:"error_message,omitempty"`              // 失败原因
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                               // 创建时间

	// 关联
	Drop Drop `gorm:"foreignKey:DropID" json:"drop,omitempty"` // 所属 Drop
}

// TableName 指定表名
func (Mint) TableName() string {
	return "mints"
}
