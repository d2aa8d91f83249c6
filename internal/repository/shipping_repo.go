package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
)

// ==================== ShippingZone 接口定义 ====================

// ShippingZoneRepository 配送区域仓储接口
type ShippingZoneRepository interface {
	GetByID(ctx context.Context, id int64) (*model.ShippingZone, error)
	GetByShopifyZoneID(ctx context.Context, brandID int64, shopifyZoneID string) (*model.ShippingZone, error)

	// Upsert 按 (brand_id, shopify_zone_id) 查找，存在则更新名称、国家、省份，否则新增
	// 返回的 created 表示是否为新增；zone.ID 会被回填
	Upsert(ctx context.Context, zone *model.ShippingZone) (created bool, err error)

	ListByBrandIDWithRates(ctx context.Context, brandID int64) ([]model.ShippingZone, error)
	Count(ctx context.Context, brandID int64) (int64, error)
}

// ==================== ShippingZone 实现 ====================

type shippingZoneRepo struct {
	db *gorm.DB
}

// NewShippingZoneRepository 创建配送区域仓储
func NewShippingZoneRepository(db *gorm.DB) ShippingZoneRepository {
	return &shippingZoneRepo{db: db}
}

func (r *shippingZoneRepo) GetByID(ctx context.Context, id int64) (*model.ShippingZone, error) {
	var zone model.ShippingZone
	if err := r.db.WithContext(ctx).First(&zone, id).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *shippingZoneRepo) GetByShopifyZoneID(ctx context.Context, brandID int64, shopifyZoneID string) (*model.ShippingZone, error) {
	var zone model.ShippingZone
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND shopify_zone_id = ?", brandID, shopifyZoneID).
		First(&zone).Error
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *shippingZoneRepo) Upsert(ctx context.Context, zone *model.ShippingZone) (bool, error) {
	existing, err := r.GetByShopifyZoneID(ctx, zone.BrandID, zone.ShopifyZoneID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("查询区域失败: %w", err)
	}

	if existing == nil {
		if err := r.db.WithContext(ctx).Create(zone).Error; err != nil {
			return false, fmt.Errorf("新增区域失败: %w", err)
		}
		return true, nil
	}

	err = r.db.WithContext(ctx).
		Model(existing).
		Updates(map[string]interface{}{
			"name":      zone.Name,
			"countries": zone.Countries,
			"provinces": zone.Provinces,
		}).Error
	if err != nil {
		return false, fmt.Errorf("更新区域失败: %w", err)
	}
	zone.ID = existing.ID
	zone.CreatedAt = existing.CreatedAt
	zone.UpdatedAt = existing.UpdatedAt
	return false, nil
}

func (r *shippingZoneRepo) ListByBrandIDWithRates(ctx context.Context, brandID int64) ([]model.ShippingZone, error) {
	var list []model.ShippingZone
	err := r.db.WithContext(ctx).
		Preload("Rates", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("brand_id = ?", brandID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *shippingZoneRepo) Count(ctx context.Context, brandID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ShippingZone{}).
		Where("brand_id = ?", brandID).
		Count(&count).Error
	return count, err
}

// ==================== ShippingRate 接口定义 ====================

// ShippingRateRepository 运费方式仓储接口
type ShippingRateRepository interface {
	GetByShopifyRateID(ctx context.Context, zoneID int64, shopifyRateID string) (*model.ShippingRate, error)

	// Upsert 按 (zone_id, shopify_rate_id) 查找，存在则更新，否则新增
	Upsert(ctx context.Context, rate *model.ShippingRate) (created bool, err error)

	ListByZoneID(ctx context.Context, zoneID int64) ([]model.ShippingRate, error)
	Count(ctx context.Context, zoneID int64) (int64, error)
}

// ==================== ShippingRate 实现 ====================

type shippingRateRepo struct {
	db *gorm.DB
}

// NewShippingRateRepository 创建运费方式仓储
func NewShippingRateRepository(db *gorm.DB) ShippingRateRepository {
	return &shippingRateRepo{db: db}
}

func (r *shippingRateRepo) GetByShopifyRateID(ctx context.Context, zoneID int64, shopifyRateID string) (*model.ShippingRate, error) {
	var rate model.ShippingRate
	err := r.db.WithContext(ctx).
		Where("zone_id = ? AND shopify_rate_id = ?", zoneID, shopifyRateID).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *shippingRateRepo) Upsert(ctx context.Context, rate *model.ShippingRate) (bool, error) {
	existing, err := r.GetByShopifyRateID(ctx, rate.ZoneID, rate.ShopifyRateID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("查询运费方式失败: %w", err)
	}

	if existing == nil {
		if err := r.db.WithContext(ctx).Create(rate).Error; err != nil {
			return false, fmt.Errorf("新增运费方式失败: %w", err)
		}
		return true, nil
	}

	// map 更新，保证 NULL / 0 也能写入
	err = r.db.WithContext(ctx).
		Model(existing).
		Updates(map[string]interface{}{
			"name":             rate.Name,
			"price":            rate.Price,
			"min_order_amount": rate.MinOrderAmount,
			"max_order_amount": rate.MaxOrderAmount,
			"conditions":       rate.Conditions,
		}).Error
	if err != nil {
		return false, fmt.Errorf("更新运费方式失败: %w", err)
	}
	rate.ID = existing.ID
	rate.CreatedAt = existing.CreatedAt
	rate.UpdatedAt = existing.UpdatedAt
	return false, nil
}

func (r *shippingRateRepo) ListByZoneID(ctx context.Context, zoneID int64) ([]model.ShippingRate, error) {
	var list []model.ShippingRate
	err := r.db.WithContext(ctx).
		Where("zone_id = ?", zoneID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *shippingRateRepo) Count(ctx context.Context, zoneID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ShippingRate{}).
		Where("zone_id = ?", zoneID).
		Count(&count).Error
	return count, err
}
