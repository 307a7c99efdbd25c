package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-trading/vigil/internal/watchlist"
)

func TestAdminStatusEndpoint(t *testing.T) {
	h := newHarness(t)
	h.seedWatching(t, mintA)
	handler := h.engine.AdminHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/status?mint="+string(mintA), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(watchlist.StatusWatching))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/status?mint=unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/status", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminKillAndReset(t *testing.T) {
	h := newHarness(t)
	handler := h.engine.AdminHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/kill",
		strings.NewReader(`{"reason":"incident response"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.guard.Snapshot().KillSwitchActive)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/kill/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, h.guard.Snapshot().KillSwitchActive)

	// Missing reason is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/kill", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOutcomeFeedsWinRate(t *testing.T) {
	h := newHarness(t)
	handler := h.engine.AdminHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/outcome",
		strings.NewReader(`{"profitable":true}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/outcome",
		strings.NewReader(`{"profitable":false}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	state := h.guard.Snapshot()
	require.Len(t, state.Outcomes, 2)
	assert.InDelta(t, 0.5, state.WinRate, 1e-9)

	// Missing field is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/outcome", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminManualTransition(t *testing.T) {
	h := newHarness(t)
	h.seedWatching(t, mintA)
	handler := h.engine.AdminHandler()

	body := `{"mint":"` + string(mintA) + `","target":"removed","reason":"cleanup"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/transition", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	e, err := h.store.GetByMint(context.Background(), mintA)
	require.NoError(t, err)
	assert.Equal(t, watchlist.StatusRemoved, e.Status)

	// Terminal states reject operator overrides too.
	body = `{"mint":"` + string(mintA) + `","target":"watching","reason":"revive"}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/transition", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdminRunConflictsWhileInFlight(t *testing.T) {
	h := newHarness(t)
	h.engine.running.Store(true)
	defer h.engine.running.Store(false)

	rec := httptest.NewRecorder()
	h.engine.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/run", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
