package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/task"
)

// ShippingTaskTrigger 定时任务的手动触发入口，*task.TaskManager 实现了该接口
type ShippingTaskTrigger interface {
	TriggerShippingSync(ctx context.Context) (task.RunResult, error)
	TriggerAllShippingSync()
	Status() map[string]bool
}

// SyncController 同步控制器
type SyncController struct {
	tasks ShippingTaskTrigger
}

// NewSyncController 创建同步控制器
func NewSyncController(tasks ShippingTaskTrigger) *SyncController {
	return &SyncController{tasks: tasks}
}

// ==================== Handler 实现 ====================

// SyncAllShipping 同步所有品牌运费
// @Summary 手动同步所有品牌运费
// @Description 默认后台执行立即返回；wait=true 时等待本轮结束并返回汇总
// @Tags Sync
// @Param wait query bool false "是否等待完成"
// @Success 200 {object} task.RunResult
// @Success 202 {object} map[string]interface{}
// @Failure 503 {object} map[string]string "定时同步未启用"
// @Router /sync/shipping [post]
func (c *SyncController) SyncAllShipping(ctx *gin.Context) {
	if !c.tasks.Status()["shipping"] {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": task.ErrTaskDisabled.Error()})
		return
	}

	if ctx.Query("wait") != "true" {
		c.tasks.TriggerAllShippingSync()
		ctx.JSON(http.StatusAccepted, gin.H{"message": "所有品牌运费同步任务已启动"})
		return
	}

	result, err := c.tasks.TriggerShippingSync(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, task.ErrTaskDisabled) {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// TaskStatus 查看定时任务是否启用
// @Summary 定时任务状态
// @Tags Sync
// @Success 200 {object} map[string]bool
// @Router /sync/status [get]
func (c *SyncController) TaskStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.tasks.Status())
}
