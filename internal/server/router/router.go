package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted on the engine. Webhook and
// Metrics are optional.
type Handlers struct {
	Bakery  *handlers.BakeryHandler
	Webhook *handlers.WebhookHandler
	Metrics http.Handler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", handlers.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
		r.POST("/send-message", h.Webhook.SendMessage)
	}

	api := r.Group("/api/v1")
	{
		b := h.Bakery

		api.GET("/products", b.ListProducts)
		api.POST("/products", b.CreateProduct)
		api.PATCH("/products/:id", b.UpdateProduct)

		api.POST("/production", b.RecordProduction)
		api.GET("/production/stats", b.ProductionStats)
		api.GET("/production/history", b.ProductionHistory)

		api.GET("/sales/board", b.SalesBoard)
		api.POST("/sales", b.RecordSales)

		api.GET("/history", b.History)
		api.GET("/ledger", b.Ledger)
		api.GET("/analytics", b.Analytics)

		api.PATCH("/events/:kind/:id", b.EditEvent)
		api.DELETE("/events/:kind/:id", b.DeleteEvent)

		api.POST("/reports/digest", b.PublishDigest)
		api.GET("/reports/digests", b.ArchivedDigests)
	}

	if logger != nil {
		logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

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
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
