package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/open-cmuq/tapin/internal/db"
	"github.com/open-cmuq/tapin/internal/engine"
	"github.com/open-cmuq/tapin/internal/models"
)

const testAdminKey = "test-admin-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	gdb, err := db.Open(filepath.Join(t.TempDir(), "tapin.db"))
	require.NoError(t, err)

	eng := engine.New(gdb, nil)
	return NewRouter(eng, testAdminKey), gdb
}

func seedVerifiedUser(t *testing.T, gdb *gorm.DB, name, card string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{Name: name, Email: name + "@example.com", CardUID: card, VerifiedAt: &now}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

func seedFacility(t *testing.T, gdb *gorm.DB, slug string) *models.Scope {
	t.Helper()
	scope := &models.Scope{Slug: slug, Name: slug, Kind: models.KindFacility, Active: true}
	require.NoError(t, gdb.Create(scope).Error)
	return scope
}

func postToggle(router *gin.Engine, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/attendance/toggle", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestToggleEndpoint(t *testing.T) {
	router, gdb := newTestServer(t)
	seedVerifiedUser(t, gdb, "nadia", "CARD-1")
	seedFacility(t, gdb, "woodshop")

	w := postToggle(router, ToggleRequest{CardUID: "CARD-1", Scope: "woodshop"})
	require.Equal(t, http.StatusOK, w.Code)

	var result engine.ToggleResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, engine.ActionCheckIn, result.Action)

	w = postToggle(router, ToggleRequest{CardUID: "CARD-1", Scope: "woodshop"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, engine.ActionCheckOut, result.Action)
}

func TestToggleUnknownCard(t *testing.T) {
	router, gdb := newTestServer(t)
	seedFacility(t, gdb, "woodshop")

	w := postToggle(router, ToggleRequest{CardUID: "NOPE", Scope: "woodshop"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleMissingFields(t *testing.T) {
	router, _ := newTestServer(t)

	w := postToggle(router, map[string]string{"card_uid": "CARD-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleConflictNamesFacility(t *testing.T) {
	router, gdb := newTestServer(t)
	seedVerifiedUser(t, gdb, "nadia", "CARD-1")
	seedFacility(t, gdb, "woodshop")
	seedFacility(t, gdb, "metalshop")

	w := postToggle(router, ToggleRequest{CardUID: "CARD-1", Scope: "woodshop"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postToggle(router, ToggleRequest{CardUID: "CARD-1", Scope: "metalshop"})
	require.Equal(t, http.StatusConflict, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "woodshop", body["conflicting_scope"])
}

func TestStatusEndpoint(t *testing.T) {
	router, gdb := newTestServer(t)
	seedVerifiedUser(t, gdb, "nadia", "CARD-1")
	seedFacility(t, gdb, "woodshop")

	req := httptest.NewRequest(http.MethodGet, "/api/attendance/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/attendance/status?card_uid=CARD-1&scope=woodshop", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status engine.StatusResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Active)

	postToggle(router, ToggleRequest{CardUID: "CARD-1", Scope: "woodshop"})

	req = httptest.NewRequest(http.MethodGet, "/api/attendance/status?card_uid=CARD-1&scope=woodshop", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.Active)
}

func TestAdminEndpointsRequireKey(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reconcile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/timeout", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/reconcile", nil)
	req.Header.Set("X-Admin-Key", testAdminKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["count"])
}
