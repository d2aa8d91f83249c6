package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/controller"
	"github.com/Shopscopeapp/shopscope-private-sub000/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	shippingCtl *controller.ShippingController,
	integrationCtl *controller.IntegrationController,
	syncCtl *controller.SyncController,
	manualSyncCooldown time.Duration) {
	// 1. Swagger 文档路由
	// swag init 生成 docs 后访问 http://localhost:8080/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. 健康检查
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 3. Shopify 接入
	shopify := r.Group("/shopify")
	{
		// POST /shopify/sync-shipping
		shopify.POST("/sync-shipping", shippingCtl.SyncShipping)

		// POST /shopify/webhooks/setup
		shopify.POST("/webhooks/setup", integrationCtl.SetupWebhooks)

		// POST /shopify/products/list
		shopify.POST("/products/list", integrationCtl.ListProducts)

		// GET /shopify/brands/:brandId/shipping-zones
		shopify.GET("/brands/:brandId/shipping-zones", shippingCtl.GetBrandZones)
	}

	// 4. 定时任务手动触发
	sync := r.Group("/sync")
	{
		// POST /sync/shipping?wait=true
		sync.POST("/shipping",
			middleware.GlobalSyncRateLimit(middleware.NewSyncCooldown(), middleware.SyncTypeShipping, manualSyncCooldown),
			syncCtl.SyncAllShipping,
		)
		sync.GET("/status", syncCtl.TaskStatus)
	}
}
