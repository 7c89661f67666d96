package models

import (
	"time"
)

// WalletlessKey 托管钱包密钥表，(用户, 链) 唯一
type WalletlessKey struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                               // 主键
	UserID          uint      `gorm:"not null;uniqueIndex:idx_walletless_keys_user_chain" json:"user_id"` // 所属用户ID
	Chain           string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_walletless_keys_user_chain" json:"chain"` // 链标识
	Address         string    `gorm:"type:varchar(128);not null;index" json:"address"`                    // 链上公开地址
	EncryptedSecret string    `gorm:"type:text;not null" json:"-"`                                        // 私钥密文（信封格式 v<version>:<base64>）
	KeyVersion      int       `gorm:"not null;default:1" json:"-"`                                        // 加密密钥版本
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                            // 创建时间

	// 关联
	User WalletlessUser `gorm:"foreignKey:UserID" json:"user,omitempty"` // 所属用户
}

// TableName 指定表名
func (WalletlessKey) TableName() string {
	return "walletless_keys"
}
