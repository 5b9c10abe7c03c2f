package middleware

import (
	"net/http"

	"space-notes-backend/pkg/config"

	"github.com/go-chi/cors"
)

// CORS 创建CORS中间件
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	corsOptions := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodPatch,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Requested-With",
			"X-Request-Id",
		},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300, // 5分钟
	}

	// 通配符来源不能携带凭证
	if len(cfg.AllowedOrigins) == 0 || contains(cfg.AllowedOrigins, "*") {
		if cfg.IsProduction() {
			// 空列表在 cors 中表示全部允许，这里显式拒绝
			corsOptions.AllowedOrigins = nil
			corsOptions.AllowOriginFunc = func(*http.Request, string) bool { return false }
		} else {
			corsOptions.AllowedOrigins = []string{"*"}
		}
		corsOptions.AllowCredentials = false
	}

	return cors.Handler(corsOptions)
}

// contains 检查切片是否包含指定的字符串
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
