package model

import "time"

// Brand 状态常量
const (
	BrandStatusPending  = 0 // 未接入
	BrandStatusActive   = 1 // 正常
	BrandStatusInactive = 2 // 已停用
)

// Brand 品牌（一个 Shopify 店铺对应一个品牌）
type Brand struct {
	BaseModel

	Name string `gorm:"size:255;not null;comment:品牌名称" json:"name"`

	// Shopify 凭证，定时同步使用；手动同步由请求携带
	ShopifyShop        string `gorm:"size:255;index;comment:myshopify 域名" json:"shopify_shop"`
	ShopifyAccessToken string `gorm:"size:255;comment:Admin API Token" json:"-"`

	Status int `gorm:"default:1;comment:状态 0-未接入 1-正常 2-已停用" json:"status"`

	// 同步时间
	ShippingSyncedAt *time.Time `gorm:"comment:最后运费同步时间" json:"shipping_synced_at"`

	ShippingZones []ShippingZone `gorm:"foreignKey:BrandID" json:"shipping_zones,omitempty"`
}

func (Brand) TableName() string {
	return "brands"
}
