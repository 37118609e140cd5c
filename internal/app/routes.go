package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dywsy21/Cecilia/internal/middleware"
	"github.com/dywsy21/Cecilia/internal/models"
	"github.com/dywsy21/Cecilia/internal/modules/subscription"
	"github.com/dywsy21/Cecilia/internal/modules/summarizer"
	"github.com/dywsy21/Cecilia/internal/modules/verification"
	"github.com/dywsy21/Cecilia/internal/pkg/response"
)

func (a *App) buildRouter(limiter middleware.Limiter) *gin.Engine {
	if !a.cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(a.log.Named("http")))
	r.Use(a.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	verifyGroup := api.Group("/subscription")
	verification.NewHandler(a.verification, a.log.Named("verification")).Register(verifyGroup,
		middleware.RateLimit(limiter, "create", 5, 15*time.Minute, "too many subscription requests"),
		middleware.RateLimit(limiter, "verify", 10, 5*time.Minute, "too many verification attempts"),
		middleware.RateLimit(limiter, "resend", 3, 15*time.Minute, "too many resend requests"),
	)

	subsGroup := api.Group("/subscriptions")
	subscription.NewHandler(a.registry, a.log.Named("subscription")).Register(subsGroup)

	api.POST("/summarize/run", a.runNow)
	api.GET("/jobs", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	return r
}

func (a *App) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(a.cfg.AllowedOrigins) > 0 {
		cfg.AllowOrigins = a.cfg.AllowedOrigins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return cors.New(cfg)
}

type runRequest struct {
	Topic   string `json:"topic" binding:"required"`
	SendAll bool   `json:"send_all"`
}

// runNow triggers an on-demand delivery for one topic. On-demand runs
// always report, even with zero new papers.
func (a *App) runNow(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "topic is required")
		return
	}

	sub := models.ParseTopic(req.Topic)
	if sub.Topic == "" || !models.ValidCategory(strings.ToLower(sub.Category)) {
		response.UnprocessableEntity(c, "unknown arXiv category in topic "+req.Topic)
		return
	}

	result, err := a.summarizer.Run(c.Request.Context(), sub, summarizer.RunOptions{
		SendAll:       req.SendAll,
		NotifyOnEmpty: true,
	})
	if err != nil {
		a.log.Error("on-demand run failed", zap.String("topic", sub.String()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"ok": 0, "code": http.StatusBadGateway, "message": err.Error(),
		})
		return
	}

	response.OK(c, gin.H{
		"run_id":  result.RunID,
		"topic":   sub.String(),
		"new":     result.NewCount,
		"cached":  result.CachedCount,
		"skipped": result.SkippedCount,
		"push":    gin.H{"sent": result.PushSent, "failed": result.PushFailed},
		"email":   gin.H{"sent": result.EmailsSent, "failed": result.EmailsFailed},
	})
}
