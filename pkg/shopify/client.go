package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
)

// Config Shopify Admin API 参数
type Config struct {
	APIVersion string // 如 2024-01
	Scheme     string // https；测试环境可用 http
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		APIVersion: "2024-01",
		Scheme:     "https",
	}
}

// Credentials 单个品牌的店铺凭证
type Credentials struct {
	Shop        string // xxx.myshopify.com
	AccessToken string
}

// Client 单个品牌的 Shopify 客户端
// GraphQL 走 Dispatcher.Send，REST 走 resty；二者共用该品牌的限流器
type Client struct {
	dispatcher net.Dispatcher
	brandID    int64
	creds      Credentials
	cfg        Config
	rest       *resty.Client
	logger     *zap.Logger
}

// NewClient 创建客户端
func NewClient(dispatcher net.Dispatcher, brandID int64, creds Credentials, cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.APIVersion == "" {
		cfg.APIVersion = def.APIVersion
	}
	if cfg.Scheme == "" {
		cfg.Scheme = def.Scheme
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	creds.Shop = NormalizeShop(creds.Shop)

	rest := resty.NewWithClient(dispatcher.HTTPClient(brandID)).
		SetHeader(net.HeaderShopifyAccessToken, creds.AccessToken).
		SetHeader("Accept", "application/json")

	return &Client{
		dispatcher: dispatcher,
		brandID:    brandID,
		creds:      creds,
		cfg:        cfg,
		rest:       rest,
		logger:     logger.With(zap.Int64("brand_id", brandID), zap.String("shop", creds.Shop)),
	}
}

// NormalizeShop 去掉协议头和末尾斜杠
func NormalizeShop(shop string) string {
	shop = strings.TrimSpace(shop)
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	return strings.TrimRight(shop, "/")
}

func (c *Client) apiBase() string {
	return fmt.Sprintf("%s://%s/admin/api/%s", c.cfg.Scheme, c.creds.Shop, c.cfg.APIVersion)
}

// GraphQLURL GraphQL 端点
func (c *Client) GraphQLURL() string {
	return c.apiBase() + "/graphql.json"
}

func (c *Client) restURL(resource string) string {
	return fmt.Sprintf("%s/%s.json", c.apiBase(), resource)
}

// ==================== GraphQL ====================

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// GraphQLErrorItem GraphQL errors[] 中的一项
type GraphQLErrorItem struct {
	Message string `json:"message"`
}

// GraphQLError 响应 200 但带有 errors[]
type GraphQLError struct {
	Errors []GraphQLErrorItem
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}
	return "Shopify GraphQL 错误: " + strings.Join(msgs, "; ")
}

// Query 执行 GraphQL 查询并把 data 解码到 out
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("序列化 GraphQL 请求失败: %w", err)
	}

	req, err := net.BuildShopifyPostRequest(ctx, c.GraphQLURL(), bytes.NewReader(payload), c.creds.AccessToken)
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}

	resp, err := c.dispatcher.Send(ctx, c.brandID, req)
	if err != nil {
		return fmt.Errorf("请求 Shopify GraphQL 失败: %w", err)
	}
	defer net.DrainAndClose(resp)

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("解析 GraphQL 响应失败: %w", err)
	}

	if gqlErr := parseGraphQLErrors(gqlResp.Errors); gqlErr != nil {
		return gqlErr
	}

	if out == nil || isNull(gqlResp.Data) {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("解析 GraphQL data 失败: %w", err)
	}
	return nil
}

// parseGraphQLErrors errors 可能是数组，也可能是单个字符串
func parseGraphQLErrors(raw json.RawMessage) error {
	if isNull(raw) {
		return nil
	}

	var items []GraphQLErrorItem
	if err := json.Unmarshal(raw, &items); err == nil {
		if len(items) == 0 {
			return nil
		}
		return &GraphQLError{Errors: items}
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
		return &GraphQLError{Errors: []GraphQLErrorItem{{Message: msg}}}
	}
	return &GraphQLError{Errors: []GraphQLErrorItem{{Message: string(raw)}}}
}

// FetchDeliverySettings 查询 legacy 模式
func (c *Client) FetchDeliverySettings(ctx context.Context) (legacyMode bool, err error) {
	var data DeliverySettingsData
	if err := c.Query(ctx, DeliverySettingsQuery, nil, &data); err != nil {
		return false, err
	}
	if data.DeliverySettings == nil {
		return false, nil
	}
	return data.DeliverySettings.LegacyModeProfiles, nil
}

// FetchDeliveryProfiles 拉取完整运费配置图
func (c *Client) FetchDeliveryProfiles(ctx context.Context) (*DeliveryProfilesData, error) {
	var data DeliveryProfilesData
	if err := c.Query(ctx, DeliveryProfilesQuery, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ==================== REST ====================

// ListProductsPage 按 since_id 拉取一页商品
func (c *Client) ListProductsPage(ctx context.Context, sinceID int64, limit int) ([]Product, error) {
	var result struct {
		Products []Product `json:"products"`
	}

	params := map[string]string{"limit": strconv.Itoa(limit)}
	if sinceID > 0 {
		params["since_id"] = strconv.FormatInt(sinceID, 10)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get(c.restURL("products"))
	if err != nil {
		return nil, net.WrapTransportError(err)
	}
	if err := net.CheckStatus(resp.StatusCode(), resp.Body(), resp.Header()); err != nil {
		return nil, err
	}
	return result.Products, nil
}

// CreateWebhook 注册一个 webhook 订阅
func (c *Client) CreateWebhook(ctx context.Context, topic, address string) (*Webhook, error) {
	var result struct {
		Webhook *Webhook `json:"webhook"`
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"webhook": map[string]string{
				"topic":   topic,
				"address": address,
				"format":  "json",
			},
		}).
		SetResult(&result).
		Post(c.restURL("webhooks"))
	if err != nil {
		return nil, net.WrapTransportError(err)
	}
	if err := net.CheckStatus(resp.StatusCode(), resp.Body(), resp.Header()); err != nil {
		return nil, err
	}
	if result.Webhook == nil {
		return nil, fmt.Errorf("Shopify 未返回 webhook 信息 (topic: %s)", topic)
	}
	return result.Webhook, nil
}
