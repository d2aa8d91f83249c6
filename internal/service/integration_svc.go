package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/repository"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/logger"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

// ErrWebhookBaseURLMissing 未配置本服务对外地址
var ErrWebhookBaseURLMissing = errors.New("未配置 webhook 回调地址")

// IntegrationOptions 接入相关参数
type IntegrationOptions struct {
	WebhookBaseURL string
	PageSize       int
	MaxPages       int
}

// IntegrationService webhook 注册 + 商品列表拉取
type IntegrationService struct {
	brandRepo  repository.BrandRepository
	dispatcher net.Dispatcher
	shopifyCfg shopify.Config
	opts       IntegrationOptions
	logger     *zap.Logger
}

func NewIntegrationService(
	brandRepo repository.BrandRepository,
	dispatcher net.Dispatcher,
	shopifyCfg shopify.Config,
	opts IntegrationOptions,
	logger *zap.Logger,
) *IntegrationService {
	if opts.PageSize <= 0 {
		opts.PageSize = shopify.DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = shopify.DefaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrationService{
		brandRepo:  brandRepo,
		dispatcher: dispatcher,
		shopifyCfg: shopifyCfg,
		opts:       opts,
		logger:     logger,
	}
}

// SetupWebhooks 注册全部 webhook 主题；单个主题失败不影响其他主题
func (s *IntegrationService) SetupWebhooks(ctx context.Context, req dto.ShopifyCredentialsReq) (*dto.WebhookSetupResp, error) {
	if err := validateCredentials(req); err != nil {
		return nil, err
	}
	if s.opts.WebhookBaseURL == "" {
		return nil, ErrWebhookBaseURLMissing
	}
	if err := s.ensureBrand(ctx, req.BrandID); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, s.logger).With(zap.Int64("brand_id", req.BrandID))
	client := s.newClient(req, log)

	results := shopify.NewWebhookProvisioner(client, nil, log).ProvisionAll(ctx, s.opts.WebhookBaseURL)

	success := true
	for _, r := range results {
		if !r.Success {
			success = false
			break
		}
	}
	return &dto.WebhookSetupResp{Success: success, Results: results}, nil
}

// ListProducts 按 since_id 翻页拉取全部商品；中途失败返回已拉取部分和错误信息
func (s *IntegrationService) ListProducts(ctx context.Context, req dto.ProductListReq) (*dto.ProductListResp, error) {
	if err := validateCredentials(req.ShopifyCredentialsReq); err != nil {
		return nil, err
	}
	if err := s.ensureBrand(ctx, req.BrandID); err != nil {
		return nil, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.opts.PageSize
	}
	// Shopify REST 单页上限 250
	if pageSize > 250 {
		pageSize = 250
	}

	log := logger.FromContext(ctx, s.logger).With(zap.Int64("brand_id", req.BrandID))
	client := s.newClient(req.ShopifyCredentialsReq, log)

	paginator := shopify.NewPaginator(client.ListProductsPage, func(p shopify.Product) int64 { return p.ID }, log)
	paginator.SetMaxPages(s.opts.MaxPages)

	items, errs := paginator.FetchAll(ctx, pageSize)

	resp := &dto.ProductListResp{
		Count:  len(items),
		Items:  items,
		Errors: make([]string, 0, len(errs)),
	}
	if resp.Items == nil {
		resp.Items = []shopify.Product{}
	}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}

	log.Info("[Integration] 商品列表拉取完成", zap.Int("count", resp.Count), zap.Int("errors", len(errs)))
	return resp, nil
}

func (s *IntegrationService) ensureBrand(ctx context.Context, brandID int64) error {
	_, err := findBrand(ctx, s.brandRepo, brandID)
	return err
}

func (s *IntegrationService) newClient(req dto.ShopifyCredentialsReq, log *zap.Logger) *shopify.Client {
	creds := shopify.Credentials{Shop: req.Shop, AccessToken: req.AccessToken}
	return shopify.NewClient(s.dispatcher, req.BrandID, creds, s.shopifyCfg, log)
}
