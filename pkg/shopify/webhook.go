package shopify

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// WebhookTopic 订阅主题及回调路径
type WebhookTopic struct {
	Topic string
	Path  string
}

// DefaultWebhookTopics 需要注册的 webhook 清单
var DefaultWebhookTopics = []WebhookTopic{
	{Topic: "orders/create", Path: "/webhooks/orders"},
	{Topic: "orders/updated", Path: "/webhooks/orders"},
	{Topic: "orders/paid", Path: "/webhooks/orders"},
	{Topic: "orders/cancelled", Path: "/webhooks/orders"},
	{Topic: "products/create", Path: "/webhooks/products"},
	{Topic: "products/update", Path: "/webhooks/products"},
	{Topic: "products/delete", Path: "/webhooks/products"},
	{Topic: "inventory_levels/update", Path: "/webhooks/inventory"},
}

// WebhookRegistrar 注册单个 webhook，*Client 实现了该接口
type WebhookRegistrar interface {
	CreateWebhook(ctx context.Context, topic, address string) (*Webhook, error)
}

// WebhookResult 单个主题的注册结果
type WebhookResult struct {
	Topic   string   `json:"topic"`
	Success bool     `json:"success"`
	Webhook *Webhook `json:"webhook,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// WebhookProvisioner 批量注册 webhook
// 每个主题独立注册，单个失败只记录日志；不检查是否已注册过，重复调用可能产生重复订阅
type WebhookProvisioner struct {
	registrar WebhookRegistrar
	topics    []WebhookTopic
	logger    *zap.Logger
}

// NewWebhookProvisioner topics 为空时使用 DefaultWebhookTopics
func NewWebhookProvisioner(registrar WebhookRegistrar, topics []WebhookTopic, logger *zap.Logger) *WebhookProvisioner {
	if len(topics) == 0 {
		topics = DefaultWebhookTopics
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookProvisioner{registrar: registrar, topics: topics, logger: logger}
}

// ProvisionAll 逐个注册，返回每个主题的结果
func (p *WebhookProvisioner) ProvisionAll(ctx context.Context, baseURL string) []WebhookResult {
	baseURL = strings.TrimRight(baseURL, "/")
	results := make([]WebhookResult, 0, len(p.topics))

	for _, t := range p.topics {
		address := baseURL + t.Path
		hook, err := p.registrar.CreateWebhook(ctx, t.Topic, address)
		if err != nil {
			p.logger.Warn("[WebhookProvisioner] 注册失败，继续下一个",
				zap.String("topic", t.Topic), zap.String("address", address), zap.Error(err))
			results = append(results, WebhookResult{Topic: t.Topic, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, WebhookResult{Topic: t.Topic, Success: true, Webhook: hook})
	}

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	p.logger.Info("[WebhookProvisioner] 注册完成",
		zap.Int("success", ok), zap.Int("failed", len(results)-ok))
	return results
}
