package httpx

import (
	"net/http"

	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/handlers"
	"github.com/Ayan-Alam-07/VELoop-Backend/internal/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterConfig carries the cross-cutting pieces of the router
type RouterConfig struct {
	Logger      logrus.FieldLogger
	Observer    middleware.HTTPObserver
	Metrics     http.Handler
	Limiter     *middleware.IPRateLimiter
	CORSOrigins []string
}

func BuildRouter(ah *handlers.AuthHandlers, jwtmw *middleware.AuthMW, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger, cfg.Observer))
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	auth := r.Group("/api/auth")

	// Code dispatch and password guessing are throttled per client IP
	limited := auth.Group("/", middleware.RateLimit(cfg.Limiter))
	limited.POST("/send-otp", ah.SendOTP)
	limited.POST("/password/send-otp", ah.SendResetOTP)
	limited.POST("/login", ah.Login)

	auth.POST("/register", ah.Register)
	auth.POST("/google", ah.Google)
	auth.POST("/password/reset", ah.ResetPassword)

	v := auth.Group("/", jwtmw.WithJWT())
	v.GET("/me", ah.Me)
	v.POST("/logout", ah.Logout)

	return r
}
