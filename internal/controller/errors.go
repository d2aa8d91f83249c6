package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shopscopeapp/shopscope-private-sub000/internal/service"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/logger"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/net"
	"github.com/Shopscopeapp/shopscope-private-sub000/pkg/shopify"
)

// statusFor 业务错误 -> HTTP 状态码
func statusFor(err error) int {
	var (
		gqlErr  *shopify.GraphQLError
		permErr *net.PermanentError
	)
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBrandNotFound):
		return http.StatusNotFound
	case errors.As(err, &gqlErr), errors.As(err, &permErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 统一错误响应 {"error": "..."}
func abortWithError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx.Request.Context(), nil).Error("[Controller] 请求处理失败",
			zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
