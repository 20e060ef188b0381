package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/sirupsen/logrus"
)

// ErrorHandlerMiddleware 错误处理中间件
// 处理器通过 c.Error 上报的错误在这里统一转换为 JSON 响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		HandleServiceError(c, c.Errors.Last().Err)
	}
}

// StatusForKind 业务错误类别对应的 HTTP 状态码
func StatusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidField:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError 将服务层错误写成响应
// 存储错误不向客户端暴露细节
func HandleServiceError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusForKind(kind)

	resp := ErrorResponse{
		Code:    status,
		Kind:    string(kind),
		Message: T(c, "error."+string(kind)),
	}
	if kind == apperr.KindStorage {
		loggerFrom(c).WithError(err).WithField("path", c.FullPath()).Error("storage failure")
	} else {
		resp.Detail = err.Error()
	}

	c.AbortWithStatusJSON(status, resp)
}

// loggerFrom 获取带请求 ID 的日志记录器
func loggerFrom(c *gin.Context) logrus.FieldLogger {
	return GetLogger().WithField("request_id", c.GetString(requestIDKey))
}
