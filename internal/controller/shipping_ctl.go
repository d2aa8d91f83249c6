package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/api/dto"
)

// ShippingSyncer 运费同步服务，*service.ShippingSyncService 实现了该接口
type ShippingSyncer interface {
	SyncShipping(ctx context.Context, req dto.ShippingSyncReq) (*dto.ShippingSyncReport, error)
	GetBrandZones(ctx context.Context, brandID int64) (*dto.ShippingZoneListResp, error)
}

type ShippingController struct {
	syncSvc ShippingSyncer
}

func NewShippingController(syncSvc ShippingSyncer) *ShippingController {
	return &ShippingController{
		syncSvc: syncSvc,
	}
}

// SyncShipping 同步运费配置
// @Summary 同步 Shopify 运费配置
// @Description 拉取店铺的 delivery profiles，写入 shipping_zones / shipping_rates，并推断包邮规则
// @Tags Shipping (运费)
// @Accept json
// @Produce json
// @Param body body dto.ShippingSyncReq true "品牌ID + Shopify 凭证"
// @Success 200 {object} dto.ShippingSyncResp "同步成功"
// @Failure 400 {object} map[string]string "参数缺失或 Shopify 返回错误"
// @Failure 404 {object} map[string]string "品牌不存在"
// @Failure 500 {object} map[string]string "同步失败"
// @Router /shopify/sync-shipping [post]
func (c *ShippingController) SyncShipping(ctx *gin.Context) {
	var req dto.ShippingSyncReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误: " + err.Error()})
		return
	}

	report, err := c.syncSvc.SyncShipping(ctx.Request.Context(), req)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ShippingSyncResp{
		Success: true,
		Message: "运费配置同步成功",
		Report:  report,
	})
}

// GetBrandZones 获取品牌已同步的区域
// @Summary 获取已同步的运费区域
// @Description 返回品牌的 shipping_zones 及其 shipping_rates
// @Tags Shipping (运费)
// @Produce json
// @Param brandId path int true "品牌ID"
// @Success 200 {object} dto.ShippingZoneListResp "区域列表"
// @Failure 400 {object} map[string]string "ID格式错误"
// @Failure 404 {object} map[string]string "品牌不存在"
// @Failure 500 {object} map[string]string "查询失败"
// @Router /shopify/brands/{brandId}/shipping-zones [get]
func (c *ShippingController) GetBrandZones(ctx *gin.Context) {
	brandID, err := strconv.ParseInt(ctx.Param("brandId"), 10, 64)
	if err != nil || brandID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的品牌ID"})
		return
	}

	resp, err := c.syncSvc.GetBrandZones(ctx.Request.Context(), brandID)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
