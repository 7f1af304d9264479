package handler

import (
	"merchant-service/internal/adapter/http/middleware"
	"merchant-service/internal/core/domain"
	"merchant-service/internal/core/ports"
	"merchant-service/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	MerchantSvc    ports.MerchantService
	AdminAuthSvc   ports.AdminAuthService
	TokenSvc       ports.TokenService
	AuditSvc       ports.AuditService           // nil = audit logging disabled
	RateLimitStore middleware.RateLimitStore    // nil = Redis rate limiting disabled
	LocalLimiter   *middleware.LocalRateLimiter // admin login fallback when RateLimitStore is nil
	HealthCheckers []ports.HealthChecker
	Metrics        *metrics.Metrics // nil = /metrics disabled
	OpenAPISpec    []byte
	MaxBodyBytes   int64
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep: PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	docs := NewDocsHandler(deps.OpenAPISpec)
	swagger := r.Group("/swagger")
	{
		swagger.GET("", docs.UI)
		swagger.GET("/spec", docs.Spec)
	}

	rules := middleware.DefaultRateLimitRules()
	noop := func(c *gin.Context) { c.Next() }

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return noop
		}
		rule, ok := rules[group]
		if !ok {
			return noop
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	adminLoginLimit := rl(middleware.GroupAdminLogin)
	if deps.RateLimitStore == nil && deps.LocalLimiter != nil {
		adminLoginLimit = deps.LocalLimiter.Middleware()
	}

	v1 := r.Group("/api/v1")

	// --- Public merchant routes ---
	merchantHandler := NewMerchantHandler(deps.MerchantSvc)
	public := v1.Group("/merchants")
	{
		public.POST("/register", rl(middleware.GroupMerchantRegister), merchantHandler.Register)
		public.POST("/login", rl(middleware.GroupMerchantLogin), merchantHandler.Login)
		public.POST("/verify-email", rl(middleware.GroupMerchantVerify), merchantHandler.VerifyEmail)
		public.POST("/resend-verification", rl(middleware.GroupMerchantVerify), merchantHandler.ResendVerification)
	}

	// --- Merchant self-service (merchant JWT, one quota unit per call) ---
	me := v1.Group("/merchants/me",
		middleware.MerchantAuth(deps.TokenSvc),
		rl(middleware.GroupMerchantAPI),
		middleware.ApiQuota(deps.MerchantSvc),
	)
	{
		me.GET("", merchantHandler.GetProfile)
		me.PATCH("/profile", merchantHandler.UpdateProfile)
		me.PATCH("/business", merchantHandler.UpdateBusiness)
		me.PATCH("/address", merchantHandler.UpdateAddress)
		me.POST("/kyc", merchantHandler.SubmitKyc)
		me.PUT("/bank-account", merchantHandler.UpdateBankAccount)
		me.POST("/bank-account/verify", merchantHandler.VerifyBankAccount)
		me.PUT("/settlement", merchantHandler.UpdateSettlement)
		me.PATCH("/notifications", merchantHandler.UpdateNotifications)
		me.PUT("/currencies", merchantHandler.UpdateCurrencies)
		me.GET("/quota", merchantHandler.GetQuota)
	}

	// --- Admin auth ---
	adminAuthHandler := NewAdminAuthHandler(deps.AdminAuthSvc)
	adminAuth := v1.Group("/admin/auth")
	{
		adminAuth.POST("/login", adminLoginLimit, adminAuthHandler.Login)
		adminAuth.POST("/refresh", adminAuthHandler.Refresh)
		adminAuth.POST("/logout", adminAuthHandler.Logout)
	}

	// --- Admin merchant management (admin JWT) ---
	adminOnly := middleware.RequireRole(domain.AdminRoleAdmin)
	adminHandler := NewAdminMerchantHandler(deps.MerchantSvc)
	admin := v1.Group("/admin/merchants",
		middleware.AdminAuth(deps.AdminAuthSvc),
		middleware.RequireRole(domain.AdminRoleAdmin, domain.AdminRoleSupportAdmin),
	)
	{
		admin.GET("", adminHandler.List)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/:id", adminHandler.Get)
		admin.PATCH("/:id/status", adminOnly, adminHandler.UpdateStatus)
		admin.POST("/:id/activate", adminOnly, adminHandler.Activate)
		admin.POST("/:id/suspend", adminOnly, adminHandler.Suspend)
		admin.POST("/:id/close", adminOnly, adminHandler.Close)
		admin.POST("/:id/kyc/review", adminHandler.StartKycReview)
		admin.POST("/:id/kyc/verify", adminOnly, adminHandler.VerifyKyc)
		admin.PUT("/:id/quota", adminHandler.UpdateQuota)
	}

	return r
}
