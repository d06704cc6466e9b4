package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/analytics"
	"github.com/mamadbah2/bakery/internal/service/bakery"
)

// DigestPublisher builds and delivers the daily digest on demand.
type DigestPublisher interface {
	Publish(ctx context.Context, day models.DayKey) (models.DailyDigest, error)
}

// DigestArchive lists previously published digests.
type DigestArchive interface {
	RecentDigests(ctx context.Context, limit int64) ([]models.DailyDigest, error)
}

// BakeryHandler serves the production, sales and admin JSON API.
type BakeryHandler struct {
	bakery    *bakery.Service
	analytics *analytics.Service
	digests   DigestPublisher
	archive   DigestArchive
	logger    *zap.Logger
}

// NewBakeryHandler constructs the HTTP handler adapter. digests may be nil,
// in which case the digest endpoint answers 404.
func NewBakeryHandler(b *bakery.Service, a *analytics.Service, digests DigestPublisher, logger *zap.Logger) *BakeryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BakeryHandler{bakery: b, analytics: a, digests: digests, logger: logger}
}

// SetArchive enables the archived digests endpoint.
func (h *BakeryHandler) SetArchive(a DigestArchive) { h.archive = a }

func (h *BakeryHandler) fail(c *gin.Context, err error) { respondError(c, h.logger, err) }

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, name, err)
		return uuid.Nil, false
	}
	return id, true
}

func queryDay(c *gin.Context, name string) (models.DayKey, bool) {
	raw := c.Query(name)
	if raw == "" {
		return "", true
	}
	day, err := models.ParseDayKey(raw)
	if err != nil {
		badRequest(c, name, err)
		return "", false
	}
	return day, true
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, name, err)
		return false, false
	}
	return v, true
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
