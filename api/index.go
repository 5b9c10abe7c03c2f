package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"space-notes-backend/pkg/config"
	"space-notes-backend/pkg/server"
	"space-notes-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// 冷启动时构建，失败后下一个请求重试
var (
	routerMu sync.Mutex
	router   *chi.Mux
	build    = buildFromEnv
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	mux, err := getRouter(r.Context())
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Internal server error")
		return
	}
	mux.ServeHTTP(w, r)
}

// getRouter 返回已构建的路由器，尚未成功构建时重新构建
func getRouter(ctx context.Context) (*chi.Mux, error) {
	routerMu.Lock()
	defer routerMu.Unlock()
	if router != nil {
		return router, nil
	}
	mux, err := build(ctx)
	if err != nil {
		return nil, err
	}
	router = mux
	return router, nil
}

func buildFromEnv(ctx context.Context) (*chi.Mux, error) {
	// 加载配置
	cfg := config.GetCached()
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		// LOG_LEVEL 无法解析时回退到 info
		if logger, err = utils.NewLogger("", cfg.IsProduction()); err != nil {
			logger = zap.NewNop()
		}
	}

	mux, err := buildRouter(ctx, cfg, logger)
	if err != nil {
		logger.Error("router build failed", zap.Error(err))
		return nil, err
	}
	return mux, nil
}

func buildRouter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*chi.Mux, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	buildCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	deps, err := server.BuildDeps(buildCtx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if deps.Redis == nil {
		// 内存中的验证码只在实例存活期间有效，设置 REDIS_ADDR 以跨实例共享
		logger.Warn("serverless instance without REDIS_ADDR: otp codes and stream events stay local")
	}
	// 后台任务的生命周期长于构建路由器的请求
	deps.StartBackground(context.Background())
	logger.Info("router ready", zap.String("environment", cfg.Environment))
	return server.NewRouter(deps), nil
}
