package v1

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamreact/companion/internal/domain"
)

func TestUpdateSettingRequiresAdmin(t *testing.T) {
	api := newTestHandler(t)

	rec := api.do(http.MethodPut, "/api/settings/balance", "", `{"value":"5"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPut, "/api/settings/balance", api.token(t, domain.RoleUser), `{"value":"5"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.True(t, api.ledger.CurrentBalance().Equal(decimal.NewFromInt(1000000)))
}

func TestAdminUpdatesBalance(t *testing.T) {
	api := newTestHandler(t)
	token := api.token(t, domain.RoleAdmin)

	rec := api.do(http.MethodPut, "/api/settings/balance", token, `{"value":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"value":"5"`)
	assert.True(t, api.ledger.CurrentBalance().Equal(decimal.NewFromInt(5)))

	rec = api.do(http.MethodPut, "/api/settings/balance", token, `{"value":"99999999"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/api/settings/balance", token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSettings(t *testing.T) {
	api := newTestHandler(t)

	rec := api.do(http.MethodGet, "/api/settings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"max_balance"`)

	rec = api.do(http.MethodGet, "/api/settings/max_balance", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"1000000"`)

	rec = api.do(http.MethodGet, "/api/settings/unknown", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetBalance(t *testing.T) {
	api := newTestHandler(t)
	gum := api.addProduct(t, "Gum", 100)

	rec := api.do(http.MethodPost, "/api/products/"+gum.ID+"/purchase", api.token(t, domain.RoleUser), `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/api/settings/reset-balance", api.token(t, domain.RoleUser), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/settings/reset-balance", api.token(t, domain.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":1000000`)
	assert.True(t, api.ledger.CurrentBalance().Equal(decimal.NewFromInt(1000000)))
}
