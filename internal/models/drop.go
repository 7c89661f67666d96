package models

import (
	"time"

	"gorm.io/gorm"
)

// Drop 可铸造的纪念凭证定义，绑定到一个地点
type Drop struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                           // 主键
	LocationID     uint           `gorm:"not null;index" json:"location_id"`                              // 所属地点ID
	Name           string         `gorm:"not null" json:"name"`                                           // 名称
	Description    string         `gorm:"type:text" json:"description"`                                   // 描述
	ImageURL       string         `gorm:"type:varchar(500)" json:"image_url"`                             // 凭证图片
	MetadataURI    string         `gorm:"type:varchar(500)" json:"metadata_uri"`                          // 链上元数据地址
	AttributesJSON JSON           `gorm:"type:json" json:"attributes"`                                    // 附加属性
	EnabledChains  StringArray    `gorm:"type:json" json:"enabled_chains"`                                // 启用的链列表（evm/solana/stellar）
	Supply         int            `gorm:"not null;default:0" json:"supply"`                               // 供应上限（0 表示不限量）
	MintedCount    int            `gorm:"not null;default:0" json:"minted_count"`                         // 已铸造数量（仅由调度器递增）
	Status         string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`  // 状态（draft/published）
	IsActive       bool           `gorm:"not null;default:false;index" json:"is_active"`                  // 是否为该地点当前活跃 Drop（每地点至多一个）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                     // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间

	// 关联
	Location Location `gorm:"foreignKey:LocationID" json:"location,omitempty"` // 所属地点
}

// TableName 指定表名
func (Drop) TableName() string {
	return "drops"
}

// SupplyRemaining 返回剩余可铸造数量（-1 表示不限量）
func (d *Drop) SupplyRemaining() int {
	if d.Supply <= 0 {
		return -1
	}
	remaining := d.Supply - d.MintedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ChainEnabled 判断指定链是否对该 Drop 启用
func (d *Drop) ChainEnabled(chain string) bool {
	return d.EnabledChains.Contains(chain)
}
