package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
)

// ==================== 接口定义 ====================

// BrandRepository 品牌仓储接口
type BrandRepository interface {
	Create(ctx context.Context, brand *model.Brand) error
	GetByID(ctx context.Context, id int64) (*model.Brand, error)

	// ListWithShopifyCredentials 已保存 Shopify 凭证且状态正常的品牌，供定时同步使用
	ListWithShopifyCredentials(ctx context.Context) ([]model.Brand, error)

	UpdateShopifyCredentials(ctx context.Context, id int64, shop, accessToken string) error
	UpdateShippingSyncedAt(ctx context.Context, id int64, at time.Time) error
}

// ==================== 仓储实现 ====================

type brandRepo struct {
	db *gorm.DB
}

// NewBrandRepository 创建品牌仓储
func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &brandRepo{db: db}
}

func (r *brandRepo) Create(ctx context.Context, brand *model.Brand) error {
	return r.db.WithContext(ctx).Create(brand).Error
}

func (r *brandRepo) GetByID(ctx context.Context, id int64) (*model.Brand, error) {
	var brand model.Brand
	if err := r.db.WithContext(ctx).First(&brand, id).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

func (r *brandRepo) ListWithShopifyCredentials(ctx context.Context) ([]model.Brand, error) {
	var list []model.Brand
	err := r.db.WithContext(ctx).
		Where("status = ?", model.BrandStatusActive).
		Where("shopify_shop <> '' AND shopify_access_token <> ''").
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *brandRepo) UpdateShopifyCredentials(ctx context.Context, id int64, shop, accessToken string) error {
	return r.db.WithContext(ctx).
		Model(&model.Brand{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"shopify_shop":         shop,
			"shopify_access_token": accessToken,
		}).Error
}

func (r *brandRepo) UpdateShippingSyncedAt(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Brand{}).
		Where("id = ?", id).
		Update("shipping_synced_at", at).Error
}
