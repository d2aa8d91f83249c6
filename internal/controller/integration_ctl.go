package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
)

// Integrator webhook 注册 / 商品拉取
type Integrator interface {
	SetupWebhooks(ctx context.Context, req dto.ShopifyCredentialsReq) (*dto.WebhookSetupResp, error)
	ListProducts(ctx context.Context, req dto.ProductListReq) (*dto.ProductListResp, error)
}

type IntegrationController struct {
	integrationSvc Integrator
}

func NewIntegrationController(integrationSvc Integrator) *IntegrationController {
	return &IntegrationController{integrationSvc: integrationSvc}
}

// SetupWebhooks 注册 webhook
// @Summary 注册 Shopify webhook
// @Description 逐个注册订单、商品、库存相关主题；单个失败不影响其他主题，不检查是否已注册
// @Tags Integration (接入)
// @Accept json
// @Produce json
// @Param body body dto.ShopifyCredentialsReq true "品牌ID + Shopify 凭证"
// @Success 200 {object} dto.WebhookSetupResp "每个主题的注册结果"
// @Failure 400 {object} map[string]string "参数缺失"
// @Failure 404 {object} map[string]string "品牌不存在"
// @Failure 500 {object} map[string]string "注册失败"
// @Router /shopify/webhooks/setup [post]
func (c *IntegrationController) SetupWebhooks(ctx *gin.Context) {
	var req dto.ShopifyCredentialsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误: " + err.Error()})
		return
	}

	resp, err := c.integrationSvc.SetupWebhooks(ctx.Request.Context(), req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListProducts 拉取商品列表
// @Summary 拉取 Shopify 商品列表
// @Description 按 since_id 翻页拉取全部商品；中途失败时返回已拉取部分和错误信息
// @Tags Integration (接入)
// @Accept json
// @Produce json
// @Param body body dto.ProductListReq true "品牌ID + Shopify 凭证 + 页大小"
// @Success 200 {object} dto.ProductListResp "商品列表"
// @Failure 400 {object} map[string]string "参数缺失"
// @Failure 404 {object} map[string]string "品牌不存在"
// @Failure 500 {object} map[string]string "拉取失败"
// @Router /shopify/products/list [post]
func (c *IntegrationController) ListProducts(ctx *gin.Context) {
	var req dto.ProductListReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误: " + err.Error()})
		return
	}

	resp, err := c.integrationSvc.ListProducts(ctx.Request.Context(), req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
