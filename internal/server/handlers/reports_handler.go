package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/analytics"
	"github.com/mamadbah2/bakery/internal/service/bakery"
)

// History returns the daily reconciliation, most recent day first.
func (h *BakeryHandler) History(c *gin.Context) {
	since, ok := queryDay(c, "since")
	if !ok {
		return
	}
	withEvents, ok := queryBool(c, "events")
	if !ok {
		return
	}

	days, err := h.bakery.History(c.Request.Context(), bakery.HistoryQuery{Since: since, WithEvents: withEvents})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// Ledger returns the running stock ledger.
func (h *BakeryHandler) Ledger(c *gin.Context) {
	since, ok := queryDay(c, "since")
	if !ok {
		return
	}
	days, err := h.bakery.Ledger(c.Request.Context(), since)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// Analytics returns the admin dashboard for ?range=today|week|month|year.
func (h *BakeryHandler) Analytics(c *gin.Context) {
	r, err := analytics.ParseRange(c.Query("range"))
	if err != nil {
		h.fail(c, err)
		return
	}
	d, err := h.analytics.Dashboard(c.Request.Context(), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ProductionStats returns the production page counters.
func (h *BakeryHandler) ProductionStats(c *gin.Context) {
	stats, err := h.analytics.ProductionStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ProductionHistory returns batches grouped by day.
func (h *BakeryHandler) ProductionHistory(c *gin.Context) {
	since, ok := queryDay(c, "since")
	if !ok {
		return
	}
	days, err := h.analytics.ProductionHistory(c.Request.Context(), since)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

// PublishDigest builds and delivers the digest for ?day=, defaulting to today.
// Sink failures still return the digest with 207 and the joined error.
func (h *BakeryHandler) PublishDigest(c *gin.Context) {
	if h.digests == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "reporting disabled"})
		return
	}
	day, ok := queryDay(c, "day")
	if !ok {
		return
	}
	if day == "" {
		day = h.bakery.Today()
	}

	digest, err := h.digests.Publish(c.Request.Context(), day)
	if err != nil && digest.Day == "" {
		h.fail(c, err)
		return
	}
	if err != nil {
		h.logger.Warn("digest published with sink errors", zap.Error(err))
		c.JSON(http.StatusMultiStatus, gin.H{"digest": digest, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"digest": digest})
}

// ArchivedDigests returns the most recent published digests, newest first.
func (h *BakeryHandler) ArchivedDigests(c *gin.Context) {
	if h.archive == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "digest archive disabled"})
		return
	}
	limit := int64(30)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			badRequest(c, "limit", errors.New("must be a positive integer"))
			return
		}
		limit = n
	}

	digests, err := h.archive.RecentDigests(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, models.Unavailable("recent digests", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"digests": digests})
}
