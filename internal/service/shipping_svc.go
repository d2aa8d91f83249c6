package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/model"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/repository"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/logger"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

// 同步失败记录的类型
const (
	SyncFailureZone = "zone"
	SyncFailureRate = "rate"
)

type ShippingSyncService struct {
	brandRepo  repository.BrandRepository
	zoneRepo   repository.ShippingZoneRepository
	rateRepo   repository.ShippingRateRepository
	dispatcher net.Dispatcher
	shopifyCfg shopify.Config
	policy     ShippingRulePolicy
	locker     *BrandLocker
	logger     *zap.Logger
}

func NewShippingSyncService(
	brandRepo repository.BrandRepository,
	zoneRepo repository.ShippingZoneRepository,
	rateRepo repository.ShippingRateRepository,
	dispatcher net.Dispatcher,
	shopifyCfg shopify.Config,
	policy ShippingRulePolicy,
	locker *BrandLocker,
	logger *zap.Logger,
) *ShippingSyncService {
	if policy == nil {
		policy = NewDefaultShippingRulePolicy()
	}
	if locker == nil {
		locker = NewBrandLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShippingSyncService{
		brandRepo:  brandRepo,
		zoneRepo:   zoneRepo,
		rateRepo:   rateRepo,
		dispatcher: dispatcher,
		shopifyCfg: shopifyCfg,
		policy:     policy,
		locker:     locker,
		logger:     logger,
	}
}

// ==================== 同步方法 ====================

// SyncShipping 手动同步：凭证由请求携带
func (s *ShippingSyncService) SyncShipping(ctx context.Context, req dto.ShippingSyncReq) (*dto.ShippingSyncReport, error) {
	if err := validateCredentials(req.ShopifyCredentialsReq); err != nil {
		return nil, err
	}

	brand, err := s.getBrand(ctx, req.BrandID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, brand.ID)
	if err != nil {
		return nil, fmt.Errorf("等待品牌同步锁失败: %w", err)
	}
	defer unlock()

	creds := shopify.Credentials{Shop: req.Shop, AccessToken: req.AccessToken}
	report, err := s.sync(ctx, brand, creds)
	if err != nil {
		return nil, err
	}

	// 保存凭证，供定时同步使用
	shop := shopify.NormalizeShop(req.Shop)
	if brand.ShopifyShop != shop || brand.ShopifyAccessToken != req.AccessToken {
		if err := s.brandRepo.UpdateShopifyCredentials(ctx, brand.ID, shop, req.AccessToken); err != nil {
			s.log(ctx).Warn("[ShippingSync] 保存 Shopify 凭证失败", zap.Int64("brand_id", brand.ID), zap.Error(err))
		}
	}
	return report, nil
}

// SyncBrand 使用品牌已保存的凭证同步，供定时任务调用
// 品牌正在同步时不等待，直接返回 ErrSyncInProgress
func (s *ShippingSyncService) SyncBrand(ctx context.Context, brand *model.Brand) (*dto.ShippingSyncReport, error) {
	if brand.ShopifyShop == "" || brand.ShopifyAccessToken == "" {
		return nil, fmt.Errorf("%w: 品牌 %d 未保存 Shopify 凭证", ErrValidation, brand.ID)
	}
	unlock, ok := s.locker.TryLock(brand.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSyncInProgress, brand.ID)
	}
	defer unlock()

	creds := shopify.Credentials{Shop: brand.ShopifyShop, AccessToken: brand.ShopifyAccessToken}
	return s.sync(ctx, brand, creds)
}

// sync 拉取 -> 解析 -> 定价 -> 写库
// 只有拉取失败会中断；单条记录写库失败只记录
// 调用方需持有该品牌的同步锁
func (s *ShippingSyncService) sync(ctx context.Context, brand *model.Brand, creds shopify.Credentials) (*dto.ShippingSyncReport, error) {
	log := s.log(ctx).With(zap.Int64("brand_id", brand.ID))

	start := time.Now()
	client := shopify.NewClient(s.dispatcher, brand.ID, creds, s.shopifyCfg, log)

	legacy, err := client.FetchDeliverySettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取运费设置失败: %w", err)
	}
	if legacy {
		log.Info("[ShippingSync] 店铺仍处于 legacy 运费模式")
	}

	data, err := client.FetchDeliveryProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取运费配置失败: %w", err)
	}

	zones, skips := shopify.ParseDeliveryProfiles(data, log)

	report := &dto.ShippingSyncReport{
		BrandID:    brand.ID,
		LegacyMode: legacy,
		Skipped:    skips,
		Failures:   []dto.SyncFailure{},
	}
	if report.Skipped == nil {
		report.Skipped = []shopify.SkipReason{}
	}

	for i := range zones {
		s.upsertZone(ctx, log, brand.ID, &zones[i], report)
	}

	now := time.Now()
	report.SyncedAt = now
	if err := s.brandRepo.UpdateShippingSyncedAt(ctx, brand.ID, now); err != nil {
		log.Warn("[ShippingSync] 更新同步时间失败", zap.Error(err))
	}

	log.Info("[ShippingSync] 同步完成",
		zap.Bool("legacy_mode", legacy),
		zap.Int("zones_created", report.ZonesCreated),
		zap.Int("zones_updated", report.ZonesUpdated),
		zap.Int("rates_created", report.RatesCreated),
		zap.Int("rates_updated", report.RatesUpdated),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (s *ShippingSyncService) upsertZone(ctx context.Context, log *zap.Logger, brandID int64, pz *shopify.ParsedZone, report *dto.ShippingSyncReport) {
	zone := &model.ShippingZone{
		BrandID:       brandID,
		Name:          pz.Name,
		Countries:     pq.StringArray(pz.Countries),
		Provinces:     pq.StringArray(pz.Provinces),
		ShopifyZoneID: pz.ExternalID,
	}

	created, err := s.zoneRepo.Upsert(ctx, zone)
	if err != nil {
		log.Error("[ShippingSync] 区域写入失败，跳过该区域",
			zap.String("shopify_zone_id", pz.ExternalID), zap.Error(err))
		report.Failures = append(report.Failures, dto.SyncFailure{
			Kind: SyncFailureZone, ExternalID: pz.ExternalID, Error: err.Error(),
		})
		return
	}
	if created {
		report.ZonesCreated++
	} else {
		report.ZonesUpdated++
	}

	for j := range pz.Rates {
		s.upsertRate(ctx, log, zone.ID, &pz.Rates[j], report)
	}
}

func (s *ShippingSyncService) upsertRate(ctx context.Context, log *zap.Logger, zoneID int64, pr *shopify.ParsedRate, report *dto.ShippingSyncReport) {
	priced := s.policy.Price(*pr)

	conditions := datatypes.JSON(pr.RawConditions)
	if len(conditions) == 0 {
		conditions = datatypes.JSON("[]")
	}

	rate := &model.ShippingRate{
		ZoneID:         zoneID,
		Name:           pr.Name,
		Price:          priced.Price,
		MinOrderAmount: priced.MinOrderAmount,
		MaxOrderAmount: priced.MaxOrderAmount,
		Conditions:     conditions,
		ShopifyRateID:  pr.ExternalID,
	}

	created, err := s.rateRepo.Upsert(ctx, rate)
	if err != nil {
		log.Error("[ShippingSync] 运费写入失败",
			zap.Int64("zone_id", zoneID), zap.String("shopify_rate_id", pr.ExternalID), zap.Error(err))
		report.Failures = append(report.Failures, dto.SyncFailure{
			Kind: SyncFailureRate, ExternalID: pr.ExternalID, Error: err.Error(),
		})
		return
	}
	if created {
		report.RatesCreated++
	} else {
		report.RatesUpdated++
	}

	if priced.FreeShipping {
		log.Debug("[ShippingSync] 推断为包邮",
			zap.String("shopify_rate_id", pr.ExternalID), zap.String("name", pr.Name))
	}
}

// ==================== 查询方法 ====================

// GetBrandZones 回读品牌已同步的区域和运费
func (s *ShippingSyncService) GetBrandZones(ctx context.Context, brandID int64) (*dto.ShippingZoneListResp, error) {
	brand, err := s.getBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}

	zones, err := s.zoneRepo.ListByBrandIDWithRates(ctx, brandID)
	if err != nil {
		return nil, err
	}

	list := make([]dto.ShippingZoneResp, 0, len(zones))
	for i := range zones {
		list = append(list, convertZoneToResp(&zones[i]))
	}
	return &dto.ShippingZoneListResp{
		BrandID:          brand.ID,
		ShippingSyncedAt: brand.ShippingSyncedAt,
		Total:            int64(len(list)),
		List:             list,
	}, nil
}

// ==================== 辅助方法 ====================

func (s *ShippingSyncService) getBrand(ctx context.Context, brandID int64) (*model.Brand, error) {
	return findBrand(ctx, s.brandRepo, brandID)
}

// findBrand 品牌不存在时返回 ErrBrandNotFound
func findBrand(ctx context.Context, repo repository.BrandRepository, brandID int64) (*model.Brand, error) {
	brand, err := repo.GetByID(ctx, brandID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrBrandNotFound, brandID)
		}
		return nil, fmt.Errorf("查询品牌失败: %w", err)
	}
	return brand, nil
}

func (s *ShippingSyncService) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func validateCredentials(req dto.ShopifyCredentialsReq) error {
	var missing []string
	if req.BrandID <= 0 {
		missing = append(missing, "brandId")
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		missing = append(missing, "accessToken")
	}
	if strings.TrimSpace(req.Shop) == "" {
		missing = append(missing, "shop")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: 缺少参数 %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func convertZoneToResp(zone *model.ShippingZone) dto.ShippingZoneResp {
	resp := dto.ShippingZoneResp{
		ID:            zone.ID,
		Name:          zone.Name,
		Countries:     []string(zone.Countries),
		Provinces:     []string(zone.Provinces),
		ShopifyZoneID: zone.ShopifyZoneID,
		UpdatedAt:     zone.UpdatedAt,
		Rates:         make([]dto.ShippingRateResp, 0, len(zone.Rates)),
	}
	for _, rate := range zone.Rates {
		r := dto.ShippingRateResp{
			ID:            rate.ID,
			Name:          rate.Name,
			Price:         rate.Price,
			Conditions:    []byte(rate.Conditions),
			ShopifyRateID: rate.ShopifyRateID,
			UpdatedAt:     rate.UpdatedAt,
		}
		if rate.MinOrderAmount.Valid {
			v := rate.MinOrderAmount.Decimal
			r.MinOrderAmount = &v
		}
		if rate.MaxOrderAmount.Valid {
			v := rate.MaxOrderAmount.Decimal
			r.MaxOrderAmount = &v
		}
		resp.Rates = append(resp.Rates, r)
	}
	return resp
}
