package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cmuq/tapin/internal/models"
)

func TestReconcileOrphansClosesAndCredits(t *testing.T) {
	eng, gdb, _, clock := newTestEngine(t)
	user := seedUser(t, gdb, "nadia", "CARD-1", true)
	facility := seedFacility(t, gdb, "woodshop", nil)

	_, err := eng.Toggle(context.Background(), "CARD-1", "woodshop")
	require.NoError(t, err)

	// Simulate a crash between the session write and the pointer write
	require.NoError(t, gdb.Model(user).Update("current_facility_id", nil).Error)

	clock.advance(40 * time.Minute)

	count, err := eng.ReconcileOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var session models.Session
	require.NoError(t, gdb.Where("user_id = ? AND scope_id = ?", user.ID, facility.ID).First(&session).Error)
	assert.False(t, session.Active)
	require.NotNil(t, session.DurationMinutes)
	assert.Equal(t, 40, *session.DurationMinutes)

	// The duration was credited through the normal close path
	var attendance models.Attendance
	require.NoError(t, gdb.Where("user_id = ? AND scope_id = ?", user.ID, facility.ID).First(&attendance).Error)
	assert.Equal(t, 40, attendance.TotalMinutes)

	// Idempotent: nothing left to heal
	count, err = eng.ReconcileOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReconcileSkipsConsistentSessions(t *testing.T) {
	eng, gdb, _, _ := newTestEngine(t)
	user := seedUser(t, gdb, "nadia", "CARD-1", true)
	facility := seedFacility(t, gdb, "woodshop", nil)

	_, err := eng.Toggle(context.Background(), "CARD-1", "woodshop")
	require.NoError(t, err)

	count, err := eng.ReconcileOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	var session models.Session
	require.NoError(t, gdb.Where("user_id = ? AND scope_id = ?", user.ID, facility.ID).First(&session).Error)
	assert.True(t, session.Active)
}

func TestReconcileDoesNotClobberMovedPointer(t *testing.T) {
	eng, gdb, _, _ := newTestEngine(t)
	user := seedUser(t, gdb, "nadia", "CARD-1", true)
	seedFacility(t, gdb, "woodshop", nil)
	other := seedFacility(t, gdb, "metalshop", nil)

	_, err := eng.Toggle(context.Background(), "CARD-1", "woodshop")
	require.NoError(t, err)

	// Pointer drifted to another facility; the orphaned woodshop session must
	// close without clearing it
	require.NoError(t, gdb.Model(user).Update("current_facility_id", other.ID).Error)

	count, err := eng.ReconcileOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var reloaded models.User
	require.NoError(t, gdb.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.CurrentFacilityID)
	assert.Equal(t, other.ID, *reloaded.CurrentFacilityID)
}

func TestReconcileSkipsSessionClosedAfterScan(t *testing.T) {
	eng, gdb, _, clock := newTestEngine(t)
	user := seedUser(t, gdb, "nadia", "CARD-1", true)
	facility := seedFacility(t, gdb, "woodshop", nil)

	in, err := eng.Toggle(context.Background(), "CARD-1", "woodshop")
	require.NoError(t, err)
	staleID := in.Session.ID

	// The user taps out between the candidate scan and the per-record close
	clock.advance(10 * time.Minute)
	_, err = eng.Toggle(context.Background(), "CARD-1", "woodshop")
	require.NoError(t, err)

	clock.advance(5 * time.Minute)
	closed, note, err := eng.closeOrphan(context.Background(), staleID)
	require.NoError(t, err)
	assert.Nil(t, closed)
	assert.Nil(t, note)

	// The session keeps its original close and the duration is credited once
	var session models.Session
	require.NoError(t, gdb.First(&session, staleID).Error)
	assert.False(t, session.Active)
	require.NotNil(t, session.DurationMinutes)
	assert.Equal(t, 10, *session.DurationMinutes)

	var attendance models.Attendance
	require.NoError(t, gdb.Where("user_id = ? AND scope_id = ?", user.ID, facility.ID).First(&attendance).Error)
	assert.Equal(t, 10, attendance.TotalMinutes)
}

func TestTimeoutAllActive(t *testing.T) {
	eng, gdb, _, clock := newTestEngine(t)
	u1 := seedUser(t, gdb, "u1", "C1", true)
	u2 := seedUser(t, gdb, "u2", "C2", true)
	seedFacility(t, gdb, "woodshop", nil)
	seedFacility(t, gdb, "metalshop", nil)
	event := seedEvent(t, gdb, "hackathon", nil)

	_, err := eng.Toggle(context.Background(), "C1", "woodshop")
	require.NoError(t, err)
	_, err = eng.Toggle(context.Background(), "C2", "metalshop")
	require.NoError(t, err)
	_, err = eng.Toggle(context.Background(), "C2", "hackathon")
	require.NoError(t, err)

	clock.advance(90 * time.Minute)

	count, err := eng.TimeoutAllActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Facility sessions closed, pointers cleared, durations credited
	for _, userID := range []uint{u1.ID, u2.ID} {
		var reloaded models.User
		require.NoError(t, gdb.First(&reloaded, userID).Error)
		assert.Nil(t, reloaded.CurrentFacilityID)
	}
	var attendance models.Attendance
	require.NoError(t, gdb.Where("user_id = ?", u1.ID).First(&attendance).Error)
	assert.Equal(t, 90, attendance.TotalMinutes)

	// Event sessions are not daily-cycled
	var eventSession models.Session
	require.NoError(t, gdb.Where("user_id = ? AND scope_id = ?", u2.ID, event.ID).First(&eventSession).Error)
	assert.True(t, eventSession.Active)

	// Second sweep finds nothing
	count, err = eng.TimeoutAllActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTimeoutFiresEligibilityThroughClosePath(t *testing.T) {
	eng, gdb, notifier, clock := newTestEngine(t)
	seedUser(t, gdb, "nadia", "CARD-1", true)

	facility := &models.Scope{
		Slug: "residency", Name: "residency",
		Kind: models.KindFacility, Active: true,
		MinimumMinutes: intPtr(30),
	}
	require.NoError(t, gdb.Create(facility).Error)

	_, err := eng.Toggle(context.Background(), "CARD-1", "residency")
	require.NoError(t, err)
	clock.advance(45 * time.Minute)

	count, err := eng.TimeoutAllActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec := waitForNotification(t, notifier)
	assert.Equal(t, KindEligibilityReached, rec.kind)
	assert.Equal(t, "residency", rec.scopeSlug)
}
