package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ListTriggers lists every trigger by priority.
func (h *Handler) ListTriggers(c echo.Context) error {
	triggers, err := h.service.ListTriggers(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, triggers)
}

// ListMessages returns recent chat history.
func (h *Handler) ListMessages(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
	}

	messages, err := h.service.ListMessages(c.Request().Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// ListDonations returns recent donations.
func (h *Handler) ListDonations(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
	}

	donations, err := h.service.ListDonations(c.Request().Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, donations)
}

func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
