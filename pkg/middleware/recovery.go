package middleware

import (
	"net/http"
	"runtime/debug"

	"space-notes-backend/pkg/utils"

	"go.uber.org/zap"
)

// Recovery 恢复中间件，处理panic并返回通用错误信息
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					// 堆栈只写日志，不返回给客户端
					utils.WriteInternalServerErrorResponse(w, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
