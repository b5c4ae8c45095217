package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codebugsleuth/bughunter/internal/analytics"
	"github.com/codebugsleuth/bughunter/internal/analyzer"
	"github.com/codebugsleuth/bughunter/internal/billing"
	"github.com/codebugsleuth/bughunter/internal/config"
	"github.com/codebugsleuth/bughunter/internal/mailer"
	"github.com/codebugsleuth/bughunter/internal/store"
	"github.com/codebugsleuth/bughunter/internal/subscription"
)

// Deps carries the constructed services the routes depend on.
type Deps struct {
	DB        *gorm.DB
	Users     *store.UserStore
	Analyses  *store.AnalysisStore
	Analyzer  *analyzer.Analyzer
	Subs      *subscription.Service
	Billing   *billing.Service
	Mailer    *mailer.Client
	Analytics *analytics.Service
	JWT       config.JWTConfig
	Server    config.ServerConfig
}

// RegisterRoutes registers all API routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	corsConfig := cors.DefaultConfig()
	if len(deps.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = deps.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	apiGroup := r.Group("/api")

	systemHandler := NewSystemHandler(deps.DB, deps.Server.Environment)
	apiGroup.GET("/", systemHandler.Root)
	apiGroup.GET("/health", systemHandler.Health)
	apiGroup.GET("/version", systemHandler.Version)

	authHandler := NewAuthHandler(deps.Users, deps.Mailer, deps.JWT, deps.Server.AdminEmails)
	apiGroup.POST("/auth/register", authHandler.Register)
	apiGroup.POST("/auth/login", authHandler.Login)

	subscriptionHandler := NewSubscriptionHandler(deps.Subs, deps.Billing)
	apiGroup.GET("/plans", subscriptionHandler.Plans)

	analyzeHandler := NewAnalyzeHandler(deps.Analyzer, deps.Analyses, deps.Subs)
	apiGroup.GET("/supported-languages", analyzeHandler.SupportedLanguages)
	apiGroup.GET("/analysis-types", analyzeHandler.AnalysisTypes)

	webhookHandler := NewWebhookHandler(deps.Billing)
	apiGroup.POST("/webhook/stripe", webhookHandler.Stripe)

	authed := apiGroup.Group("")
	authed.Use(authMiddleware(deps.Users, deps.JWT))

	authed.GET("/auth/me", authHandler.Me)

	authed.POST("/analyze/text", analyzeHandler.AnalyzeText)
	authed.POST("/analyze/upload", analyzeHandler.AnalyzeUpload)
	authed.GET("/analysis/history", analyzeHandler.History)
	authed.GET("/analysis/result/:id", analyzeHandler.Result)

	authed.GET("/subscription/usage", subscriptionHandler.Usage)
	authed.GET("/subscription/payments", subscriptionHandler.Payments)
	authed.POST("/subscription/checkout", subscriptionHandler.Checkout)
	authed.POST("/subscription/portal", subscriptionHandler.Portal)
	authed.POST("/subscription/cancel", subscriptionHandler.Cancel)

	admin := authed.Group("")
	admin.Use(adminMiddleware())

	adminHandler := NewAdminHandler(deps.Analytics, deps.Users)
	admin.GET("/analytics/admin/overview", adminHandler.Overview)
	admin.GET("/analytics/admin/trends", adminHandler.Trends)
	admin.GET("/analytics/admin/users", adminHandler.Users)
}
