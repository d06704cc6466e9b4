package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/bakery/internal/domain/models"
	"github.com/mamadbah2/bakery/internal/service/bakery"
)

type productionRequest struct {
	Lines []bakery.ProductionLine `json:"lines" binding:"dive"`
}

type salesRequest struct {
	RecordedBy string            `json:"recorded_by"`
	Lines      []bakery.SaleLine `json:"lines" binding:"dive"`
}

type editEventRequest struct {
	Quantity *int   `json:"quantity"`
	Revision *int64 `json:"revision"`
}

// RecordProduction stores a production batch submission.
func (h *BakeryHandler) RecordProduction(c *gin.Context) {
	var req productionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	events, err := h.bakery.RecordProduction(c.Request.Context(), req.Lines)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"events": events})
}

// RecordSales stores a sales submission after the stock check.
func (h *BakeryHandler) RecordSales(c *gin.Context) {
	var req salesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	events, err := h.bakery.RecordSales(c.Request.Context(), req.RecordedBy, req.Lines)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"events": events})
}

// SalesBoard lists today's stock per active product.
func (h *BakeryHandler) SalesBoard(c *gin.Context) {
	items, err := h.bakery.SalesBoard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": h.bakery.Today(), "items": items})
}

// EditEvent overwrites the quantity of one production or sale row.
func (h *BakeryHandler) EditEvent(c *gin.Context) {
	kind, err := models.ParseEventKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req editEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	if req.Quantity == nil {
		badRequest(c, "quantity", errors.New("is required"))
		return
	}

	if err := h.bakery.EditEventQuantity(c.Request.Context(), kind, id, *req.Quantity, req.Revision); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteEvent removes one production or sale row.
func (h *BakeryHandler) DeleteEvent(c *gin.Context) {
	kind, err := models.ParseEventKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.bakery.DeleteEvent(c.Request.Context(), kind, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
