package api

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CurrentAPIVersion 当前 API 版本
const CurrentAPIVersion = "v1"

// VersionMiddleware API 版本中间件
// 版本优先取 API-Version 请求头,其次取 /api/vN 路径前缀
func VersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		version := CurrentAPIVersion

		if rest, ok := strings.CutPrefix(c.Request.URL.Path, "/api/"); ok {
			if part, _, _ := strings.Cut(rest, "/"); strings.HasPrefix(part, "v") && len(part) > 1 {
				version = part
			}
		}
		if headerVersion := c.GetHeader("API-Version"); headerVersion != "" {
			version = headerVersion
		}

		c.Set("api_version", version)
		c.Header("X-API-Version", version)
		c.Next()
	}
}

// GetAPIVersion 从上下文获取 API 版本
func GetAPIVersion(c *gin.Context) string {
	if v, ok := c.Get("api_version"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return CurrentAPIVersion
}
