package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// UpdateSettingRequest is the body of PUT /api/settings/:key.
type UpdateSettingRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// GetBalance returns the wallet.
func (h *Handler) GetBalance(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.GetBalance())
}

// ListSettings lists all settings.
func (h *Handler) ListSettings(c echo.Context) error {
	settings, err := h.service.ListSettings(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// GetSetting returns one setting.
func (h *Handler) GetSetting(c echo.Context) error {
	st, err := h.service.GetSetting(c.Request().Context(), c.Param("key"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// UpdateSetting creates or updates a setting.
func (h *Handler) UpdateSetting(c echo.Context) error {
	var req UpdateSettingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Value == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "value is required"})
	}

	st, err := h.service.UpdateSetting(c.Request().Context(), c.Param("key"), req.Value, req.Description)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ResetBalance refills the wallet to its maximum.
func (h *Handler) ResetBalance(c echo.Context) error {
	balance, err := h.service.ResetBalance(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "Balance reset",
		"balance":    balance.Balance,
		"maxBalance": balance.MaxBalance,
	})
}
