package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GlobalSyncRateLimit 全局同步冷却中间件
// 用于"同步所有品牌"等全局操作；interval <= 0 时不限制
//
// 使用示例:
//
//	sync.POST("/shipping",
//	    middleware.GlobalSyncRateLimit(cooldown, middleware.SyncTypeShipping, time.Minute),
//	    syncCtl.SyncAllShipping,
//	)
func GlobalSyncRateLimit(cooldown *SyncCooldown, syncType SyncType, interval time.Duration) gin.HandlerFunc {
	key := GlobalSyncKey(syncType)

	return func(c *gin.Context) {
		if interval <= 0 {
			c.Next()
			return
		}

		result := cooldown.Check(key, interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       formatRetryMessage(result.RetryAfter),
				"retry_after": retryAfter,
				"sync_type":   syncType,
			})
			return
		}

		c.Next()
	}
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())

	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
