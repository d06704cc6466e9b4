package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

type createProductRequest struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	ImageRef string          `json:"image_ref"`
	Active   *bool           `json:"active"`
}

type updateProductRequest struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Active   *bool            `json:"active"`
	Revision *int64           `json:"revision"`
}

// ListProducts returns the catalog; ?active=true hides inactive products.
func (h *BakeryHandler) ListProducts(c *gin.Context) {
	activeOnly, ok := queryBool(c, "active")
	if !ok {
		return
	}
	products, err := h.bakery.ListProducts(c.Request.Context(), activeOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProduct adds a product. New products are active unless stated otherwise.
func (h *BakeryHandler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	p, err := h.bakery.CreateProduct(c.Request.Context(), models.NewProduct{
		Name:     req.Name,
		Price:    req.Price,
		ImageRef: req.ImageRef,
		Active:   active,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateProduct applies a partial update guarded by an optional revision.
func (h *BakeryHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	p, err := h.bakery.UpdateProduct(c.Request.Context(), id, models.ProductPatch{
		Name:   req.Name,
		Price:  req.Price,
		Active: req.Active,
	}, req.Revision)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
