package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cmuq/tapin/internal/models"
)

func TestPartialIndexAllowsOneActiveSession(t *testing.T) {
	gdb, err := Open(filepath.Join(t.TempDir(), "tapin.db"))
	require.NoError(t, err)

	user := models.User{Name: "nadia", Email: "nadia@example.com", CardUID: "CARD-1"}
	require.NoError(t, gdb.Create(&user).Error)
	scope := models.Scope{Slug: "woodshop", Name: "Woodshop", Kind: models.KindFacility, Active: true}
	require.NoError(t, gdb.Create(&scope).Error)

	first := models.Session{UserID: user.ID, ScopeID: scope.ID, StartedAt: time.Now(), Active: true}
	require.NoError(t, gdb.Create(&first).Error)

	// A second active session for the same (user, scope) violates the index
	second := models.Session{UserID: user.ID, ScopeID: scope.ID, StartedAt: time.Now(), Active: true}
	assert.Error(t, gdb.Create(&second).Error)

	// Closing the first frees the slot
	now := time.Now()
	minutes := 0
	require.NoError(t, gdb.Model(&first).Updates(map[string]any{
		"active": false, "ended_at": now, "duration_minutes": minutes,
	}).Error)

	third := models.Session{UserID: user.ID, ScopeID: scope.ID, StartedAt: time.Now(), Active: true}
	assert.NoError(t, gdb.Create(&third).Error)
}
