package model

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ShippingZone 配送区域
// (brand_id, shopify_zone_id) 唯一，重复同步只更新不新增
type ShippingZone struct {
	BaseModel

	// 关联品牌
	BrandID int64  `gorm:"not null;uniqueIndex:idx_zone_brand_shopify,priority:1;comment:关联品牌ID" json:"brand_id"`
	Brand   *Brand `gorm:"foreignKey:BrandID" json:"-"`

	Name      string         `gorm:"size:255;not null;comment:区域名称" json:"name"`
	Countries pq.StringArray `gorm:"type:text[];comment:国家代码，REST_OF_WORLD 表示其他国家" json:"countries"`
	Provinces pq.StringArray `gorm:"type:text[];comment:省/州代码" json:"provinces"`

	ShopifyZoneID string `gorm:"size:255;not null;uniqueIndex:idx_zone_brand_shopify,priority:2;comment:Shopify DeliveryZone GID" json:"shopify_zone_id"`

	// 关联数据（一对多）
	Rates []ShippingRate `gorm:"foreignKey:ZoneID" json:"rates,omitempty"`
}

// ShippingRate 区域下的运费方式
// (zone_id, shopify_rate_id) 唯一
type ShippingRate struct {
	BaseModel

	// 关联区域
	ZoneID int64         `gorm:"not null;uniqueIndex:idx_rate_zone_shopify,priority:1;comment:关联区域ID" json:"zone_id"`
	Zone   *ShippingZone `gorm:"foreignKey:ZoneID" json:"-"`

	Name  string          `gorm:"size:255;not null;comment:运费名称" json:"name"`
	Price decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0;comment:运费，包邮为0" json:"price"`

	// 订单金额条件，无条件时为 NULL
	MinOrderAmount decimal.NullDecimal `gorm:"type:numeric(12,2);comment:最低订单金额" json:"min_order_amount"`
	MaxOrderAmount decimal.NullDecimal `gorm:"type:numeric(12,2);comment:最高订单金额" json:"max_order_amount"`

	// Shopify methodConditions 原文
	Conditions datatypes.JSON `gorm:"type:jsonb;comment:原始条件" json:"conditions"`

	ShopifyRateID string `gorm:"size:255;not null;uniqueIndex:idx_rate_zone_shopify,priority:2;comment:Shopify DeliveryMethodDefinition GID" json:"shopify_rate_id"`
}

func (ShippingZone) TableName() string {
	return "shipping_zones"
}
func (ShippingRate) TableName() string {
	return "shipping_rates"
}
