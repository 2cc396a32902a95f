package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streamreact/companion/internal/domain"
)

// PurchaseRequest is the body of POST /api/products/:id/purchase.
type PurchaseRequest struct {
	Quantity *int `json:"quantity"`
}

// ListProducts lists active products.
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.service.ListProducts(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetPurchaseStats returns purchase totals and the most bought products.
func (h *Handler) GetPurchaseStats(c echo.Context) error {
	stats, err := h.service.PurchaseStats(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Purchase buys a product with the shared wallet.
func (h *Handler) Purchase(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return h.writeError(c, domain.ErrUnauthenticated)
	}

	var req PurchaseRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := h.service.Purchase(c.Request().Context(), identity, c.Param("id"), quantity)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
