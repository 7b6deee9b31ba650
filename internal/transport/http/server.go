package http

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"legiseye/internal/bootstrap"
	"legiseye/internal/config"
	"legiseye/internal/logging"
	"legiseye/internal/transport/http/handler"
	"legiseye/internal/transport/http/middleware"
)

var errConnectionClosed = errors.New("connection closed")

type RouterOptions struct {
	Config    *config.Config
	Logger    *zap.Logger
	Services  *bootstrap.Services
	Health    map[string]handler.HealthCheck
	StartedAt time.Time
}

func NewRouter(a *bootstrap.App) *gin.Engine {
	return NewEngine(RouterOptions{
		Config:    a.Config,
		Logger:    a.Logger,
		Services:  a.Services,
		Health:    healthChecks(a),
		StartedAt: a.StartedAt,
	})
}

func NewEngine(opts RouterOptions) *gin.Engine {
	cfg := opts.Config
	logger := logging.OrNop(opts.Logger)

	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.AccessLog(logger.Named("http")), middleware.Metrics())

	router.GET("/healthz", handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, opts.StartedAt, opts.Health).Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s := opts.Services
	auth := middleware.AuthJWT(cfg.Auth.JWTSecret)
	limiter := middleware.NewUserRateLimiter(cfg.Chat.RateLimitPerMin, cfg.Chat.RateLimitBurst)
	limited := limiter.Handler()

	authHandler := handler.NewAuthHandler(s.Auth)
	documentHandler := handler.NewDocumentHandler(s.Documents, cfg.MaxUploadBytes())
	chatHandler := handler.NewChatHandler(s.Chat)
	sharingHandler := handler.NewSharingHandler(s.Sharing)
	commentHandler := handler.NewCommentHandler(s.Comments)
	teamHandler := handler.NewTeamHandler(s.Teams)
	invitationHandler := handler.NewInvitationHandler(s.Invitations)
	notificationHandler := handler.NewNotificationHandler(s.Notifications)
	translationHandler := handler.NewTranslationHandler(s.Translation)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", auth, authHandler.Me)
	authGroup.PATCH("/me", auth, authHandler.UpdateMe)

	api := v1.Group("")
	api.Use(auth)

	documents := api.Group("/documents")
	documents.POST("", limited, documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.GET("/:id/file", documentHandler.File)
	documents.PATCH("/:id", documentHandler.Rename)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.POST("/:id/reanalyze", limited, documentHandler.Reanalyze)
	documents.GET("/:id/highlights", documentHandler.Highlights)
	documents.GET("/:id/translation", translationHandler.Analysis)

	documents.POST("/:id/chat", limited, chatHandler.SendMessage)
	documents.POST("/:id/chat/stream", limited, chatHandler.StreamMessage)
	documents.GET("/:id/chat", chatHandler.GetHistory)
	documents.DELETE("/:id/chat", chatHandler.ClearHistory)

	documents.GET("/:id/shares", sharingHandler.List)
	documents.POST("/:id/shares", sharingHandler.Share)
	documents.DELETE("/:id/shares/:team_id", sharingHandler.Unshare)

	documents.GET("/:id/comments", commentHandler.List)
	documents.POST("/:id/comments", commentHandler.Add)
	api.PATCH("/comments/:id", commentHandler.Edit)
	api.DELETE("/comments/:id", commentHandler.Delete)
	api.POST("/comments/:id/resolve", commentHandler.Resolve)

	teams := api.Group("/teams")
	teams.POST("", teamHandler.Create)
	teams.GET("", teamHandler.List)
	teams.GET("/:id", teamHandler.Get)
	teams.PATCH("/:id", teamHandler.Update)
	teams.DELETE("/:id", teamHandler.Delete)
	teams.DELETE("/:id/members/:user_id", teamHandler.RemoveMember)
	teams.PATCH("/:id/members/:user_id", teamHandler.ChangeRole)
	teams.POST("/:id/transfer", teamHandler.TransferOwnership)
	teams.POST("/:id/invitations", invitationHandler.Invite)
	teams.GET("/:id/invitations", invitationHandler.ListTeam)
	teams.DELETE("/:id/invitations/:invitation_id", invitationHandler.Revoke)

	api.GET("/invitations", invitationHandler.ListMine)
	api.POST("/invitations/:token/accept", invitationHandler.Accept)
	api.POST("/invitations/:token/decline", invitationHandler.Decline)

	api.GET("/notifications", notificationHandler.List)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.DELETE("/notifications/:id", notificationHandler.Delete)

	api.GET("/languages", translationHandler.Languages)
	api.POST("/translate", limited, translationHandler.Translate)

	return router
}

func healthChecks(a *bootstrap.App) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		},
		"rabbitmq": func(context.Context) error {
			if a.MQConn == nil || a.MQConn.IsClosed() {
				return errConnectionClosed
			}
			return nil
		},
	}
	if a.Index != nil {
		checks["vector"] = a.Index.Ping
	}
	return checks
}
