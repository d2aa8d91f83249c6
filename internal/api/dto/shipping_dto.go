package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

// ================== Shopify 接入 DTO ==================

// ShopifyCredentialsReq 携带 Shopify 凭证的请求
type ShopifyCredentialsReq struct {
	BrandID     int64  `json:"brandId"`
	AccessToken string `json:"accessToken"`
	Shop        string `json:"shop"` // xxx.myshopify.com
}

// ShippingSyncReq 同步运费配置
type ShippingSyncReq struct {
	ShopifyCredentialsReq
}

// ShippingSyncResp 同步结果
type ShippingSyncResp struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Report  *ShippingSyncReport `json:"report,omitempty"`
}

// SyncFailure 单条记录写入失败
type SyncFailure struct {
	Kind       string `json:"kind"` // zone / rate
	ExternalID string `json:"externalId"`
	Error      string `json:"error"`
}

// ShippingSyncReport 一次同步的统计
type ShippingSyncReport struct {
	BrandID      int64                `json:"brandId"`
	LegacyMode   bool                 `json:"legacyMode"`
	ZonesCreated int                  `json:"zonesCreated"`
	ZonesUpdated int                  `json:"zonesUpdated"`
	RatesCreated int                  `json:"ratesCreated"`
	RatesUpdated int                  `json:"ratesUpdated"`
	Skipped      []shopify.SkipReason `json:"skipped"`
	Failures     []SyncFailure        `json:"failures"`
	SyncedAt     time.Time            `json:"syncedAt"`
}

// ZonesSynced 成功写入的区域数
func (r *ShippingSyncReport) ZonesSynced() int {
	return r.ZonesCreated + r.ZonesUpdated
}

// RatesSynced 成功写入的运费数
func (r *ShippingSyncReport) RatesSynced() int {
	return r.RatesCreated + r.RatesUpdated
}

// ================== 回读 DTO ==================

// ShippingRateResp 运费方式
type ShippingRateResp struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	MaxOrderAmount *decimal.Decimal `json:"maxOrderAmount"`
	Conditions     json.RawMessage  `json:"conditions"`
	ShopifyRateID  string           `json:"shopifyRateId"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ShippingZoneResp 配送区域（含运费）
type ShippingZoneResp struct {
	ID            int64              `json:"id"`
	Name          string             `json:"name"`
	Countries     []string           `json:"countries"`
	Provinces     []string           `json:"provinces"`
	ShopifyZoneID string             `json:"shopifyZoneId"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Rates         []ShippingRateResp `json:"rates"`
}

// ShippingZoneListResp 品牌的全部区域
type ShippingZoneListResp struct {
	BrandID          int64              `json:"brandId"`
	ShippingSyncedAt *time.Time         `json:"shippingSyncedAt"`
	Total            int64              `json:"total"`
	List             []ShippingZoneResp `json:"list"`
}

// ================== Webhook / 商品 DTO ==================

// WebhookSetupResp 批量注册结果
type WebhookSetupResp struct {
	Success bool                    `json:"success"`
	Results []shopify.WebhookResult `json:"results"`
}

// ProductListReq 拉取商品列表
type ProductListReq struct {
	ShopifyCredentialsReq
	PageSize int `json:"pageSize"`
}

// ProductListResp 商品列表，errors 非空表示只拉到部分数据
type ProductListResp struct {
	Count  int               `json:"count"`
	Items  []shopify.Product `json:"items"`
	Errors []string          `json:"errors"`
}
