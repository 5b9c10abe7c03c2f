package server

import (
	"fmt"
	"net/http"
	"time"

	"space-notes-backend/pkg/database"
	"space-notes-backend/pkg/handlers"
	customMiddleware "space-notes-backend/pkg/middleware"
	"space-notes-backend/pkg/models"
	"space-notes-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// RequestTimeout 除实时流外所有请求的超时（Vercel函数有时间限制）
	RequestTimeout = 25 * time.Second
	MaxRequestBody = 1 << 20
)

// NewRouter 创建完整的Chi路由器
func NewRouter(d *Deps) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, d)
	setupRoutes(router, d)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, d *Deps) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// 在日志和路由之前规范化路径并恢复 scheme/host
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(d.Logger))
	router.Use(customMiddleware.Recovery(d.Logger))
	router.Use(customMiddleware.CORS(d.Config))
	router.Use(customMiddleware.MaxBodySize(MaxRequestBody))

	if d.Config.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, d *Deps) {
	cfg, db, logger := d.Config, d.DB, d.Logger

	authHandler := handlers.NewAuthHandler(cfg, db, d.OTP, d.Provider, logger)
	spacesHandler := handlers.NewSpacesHandler(cfg, db, d.Guard, d.Events, logger)
	membersHandler := handlers.NewMembersHandler(cfg, db, d.Guard, d.Events, logger)
	messagesHandler := handlers.NewMessagesHandler(cfg, db, d.Guard, d.Events, logger)
	notesHandler := handlers.NewNotesHandler(cfg, db, d.Guard, d.Events, logger)
	lessonsHandler := handlers.NewLessonsHandler(cfg, db, d.Guard, d.Events, logger)
	streamHandler := handlers.NewStreamHandler(cfg, d.Hub, d.Guard, logger)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	accessOnly := customMiddleware.AuthMiddleware(d.Tokens, logger, false)

	router.Route("/api", func(api chi.Router) {
		// 非流式路由：超时 + 压缩
		api.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))
			r.Use(middleware.Compress(5))
			r.Use(customMiddleware.ContentTypeJSON)

			r.Get("/health", authHandler.HealthCheck)

			// 公开路由（不需要认证）
			r.Post("/auth/send-otp", authHandler.SendOTP)
			r.Post("/auth/verify-otp", authHandler.VerifyOTP)

			// 资料令牌只能用于完成注册
			r.With(customMiddleware.AuthMiddleware(d.Tokens, logger, false,
				models.TokenTypeProfile, models.TokenTypeAccess)).
				Post("/auth/complete-profile", authHandler.CompleteProfile)

			// 需要认证的路由
			r.Group(func(r chi.Router) {
				r.Use(accessOnly)

				r.Get("/auth/me", authHandler.Me)

				r.Get("/spaces", spacesHandler.ListSpaces)
				r.Post("/spaces", spacesHandler.CreateSpace)
				r.Get("/spaces/{spaceID}", spacesHandler.GetSpace)
				r.Patch("/spaces/{spaceID}", spacesHandler.UpdateSpace)
				r.Delete("/spaces/{spaceID}", spacesHandler.DeleteSpace)
				// 这里的路径参数是邀请码
				r.Post("/spaces/{spaceID}/join", spacesHandler.JoinSpace)
				r.Post("/spaces/{spaceID}/invite-code", spacesHandler.RotateInviteCode)

				r.Get("/spaces/{spaceID}/members", membersHandler.ListMembers)
				r.Post("/spaces/{spaceID}/members", membersHandler.AddMember)
				r.Patch("/spaces/{spaceID}/members/me", membersHandler.UpdateMyNotifications)

				r.Get("/spaces/{spaceID}/messages", messagesHandler.ListMessages)
				r.Post("/spaces/{spaceID}/messages", messagesHandler.CreateMessage)
				r.Delete("/spaces/{spaceID}/messages/{messageID}", messagesHandler.DeleteMessage)
				r.Post("/spaces/{spaceID}/messages/{messageID}/reactions", messagesHandler.AddReaction)
				r.Delete("/spaces/{spaceID}/messages/{messageID}/reactions", messagesHandler.RemoveReaction)

				r.Get("/spaces/{spaceID}/notes", notesHandler.ListNotes)
				r.Post("/spaces/{spaceID}/notes", notesHandler.CreateNote)
				r.Get("/spaces/{spaceID}/notes/{noteID}", notesHandler.GetNote)
				r.Patch("/spaces/{spaceID}/notes/{noteID}", notesHandler.UpdateNote)
				r.Delete("/spaces/{spaceID}/notes/{noteID}", notesHandler.DeleteNote)

				r.Get("/spaces/{spaceID}/lessons", lessonsHandler.ListLessons)
				r.Post("/spaces/{spaceID}/lessons", lessonsHandler.CreateLesson)
				r.Get("/spaces/{spaceID}/lessons/{lessonID}", lessonsHandler.GetLesson)
				r.Patch("/spaces/{spaceID}/lessons/{lessonID}", lessonsHandler.UpdateLesson)
				r.Delete("/spaces/{spaceID}/lessons/{lessonID}", lessonsHandler.DeleteLesson)
			})
		})

		// 浏览器无法在 websocket 握手中设置请求头，允许 query 传令牌
		api.With(customMiddleware.AuthMiddleware(d.Tokens, logger, true)).
			Get("/spaces/{spaceID}/stream", streamHandler.Stream)
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
