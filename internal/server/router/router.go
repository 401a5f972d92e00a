package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/server/handlers"
)

// Deps are the handlers the engine serves. Webhook is nil when WhatsApp is
// not configured.
type Deps struct {
	Profiles handlers.ProfileGetter
	Records  *handlers.RecordsHandler
	Views    *handlers.ViewHandler
	Analysis *handlers.AnalysisHandler
	Webhook  *handlers.WebhookHandler
	Gatherer prometheus.Gatherer
}

// New wires the Gin engine with required routes and middlewares.
func New(deps Deps, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if deps.Webhook != nil {
		r.GET("/webhook", deps.Webhook.Verify)
		r.POST("/webhook", deps.Webhook.Receive)
	}

	api := r.Group("/api", handlers.SessionMiddleware(deps.Profiles, logger))

	api.GET("/ponds", deps.Records.ListPonds)
	api.POST("/ponds", deps.Records.CreatePond)
	api.GET("/ponds/:id", deps.Records.GetPond)
	api.PUT("/ponds/:id", deps.Records.UpdatePond)
	api.DELETE("/ponds/:id", deps.Records.DeletePond)

	api.GET("/feeding-schedules", deps.Records.ListFeedingSchedules)
	api.POST("/feeding-schedules", deps.Records.CreateFeedingSchedule)
	api.PATCH("/feeding-schedules/:id", deps.Records.UpdateFeedingStatus)
	api.DELETE("/feeding-schedules/:id", deps.Records.DeleteFeedingSchedule)

	api.GET("/health-records", deps.Records.ListHealthRecords)
	api.POST("/health-records", deps.Records.CreateHealthRecord)
	api.DELETE("/health-records/:id", deps.Records.DeleteHealthRecord)

	api.GET("/water-quality-logs", deps.Records.ListWaterQualityLogs)
	api.POST("/water-quality-logs", deps.Records.CreateWaterQualityLog)

	api.GET("/views/:kind", deps.Views.Get)
	api.GET("/views/:kind/stream", deps.Views.Stream)

	ai := api.Group("/analysis", deps.Analysis.RequireLLM)
	ai.POST("/health", deps.Analysis.Health)
	ai.POST("/growth", deps.Analysis.Growth)
	ai.POST("/pond", deps.Analysis.Pond)
	ai.POST("/recommendations", deps.Analysis.Recommendations)
	ai.POST("/assistant", deps.Analysis.Assistant)

	if deps.Webhook != nil {
		api.POST("/admin/messages", handlers.RequireAdmin, deps.Webhook.SendMessage)
	}

	logger.Info("router initialized", zap.Bool("whatsapp", deps.Webhook != nil))
	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
