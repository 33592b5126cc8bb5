package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	reservationapp "spacebook/internal/app/handlers/reservations"
	"spacebook/internal/infra/config"
	"spacebook/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Spaces         SpaceHTTP
	Reservations   ReservationHTTP
	Payments       PaymentHTTP
	Webhooks       WebhookHTTP
	AuthMiddleware gin.HandlerFunc
	// RateLimit guards the payment and webhook routes when set.
	RateLimit gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
}

// NewRouter builds the gin engine without binding an address.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	origins := cfg.HTTP.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	limited := []gin.HandlerFunc{}
	if h.RateLimit != nil {
		limited = append(limited, h.RateLimit)
	}

	if h.Auth != nil {
		router.POST("/auth/register", h.Auth.Register)
		router.POST("/auth/login", h.Auth.Login)
		router.GET("/auth/me", h.Auth.Me)
	}
	if h.Spaces != nil {
		spaces := router.Group("/spaces")
		spaces.POST("", h.Spaces.Create)
		spaces.GET("", h.Spaces.Search)
		spaces.GET("/:id", h.Spaces.Get)
		spaces.PUT("/:id/pricing", h.Spaces.ReplacePricing)
		spaces.GET("/:id/slots", h.Spaces.Slots)
	}
	if h.Reservations != nil {
		res := router.Group("/reservations")
		res.POST("", h.Reservations.Create)
		res.POST("/calculate-price", h.Reservations.CalculatePrice)
		res.GET("/availability/:spaceId", h.Reservations.Availability)
		res.GET("/:id", h.Reservations.Get)
		res.POST("/:id/approve", h.Reservations.Transition(reservationapp.ActionApprove))
		res.POST("/:id/reject", h.Reservations.Transition(reservationapp.ActionReject))
		res.POST("/:id/cancel", h.Reservations.Transition(reservationapp.ActionCancel))
		res.POST("/:id/check-in", h.Reservations.Transition(reservationapp.ActionCheckIn))
		res.POST("/:id/check-out", h.Reservations.Transition(reservationapp.ActionCheckOut))
		res.POST("/:id/no-show", h.Reservations.Transition(reservationapp.ActionNoShow))
		router.GET("/me/reservations", h.Reservations.ListMine)
	}
	if h.Payments != nil {
		pay := router.Group("/payments", limited...)
		pay.POST("/initialize", h.Payments.Initialize)
		pay.POST("/verify", h.Payments.Verify)
		router.POST("/reservations/:id/refund", append(limited, h.Payments.Refund)...)
	}
	if h.Webhooks != nil {
		hooks := router.Group("/webhooks")
		hooks.POST("/razorpay", append(limited, h.Webhooks.Razorpay)...)
		hooks.GET("/logs", h.Webhooks.Logs)
		hooks.GET("/stats", h.Webhooks.Stats)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "development", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
