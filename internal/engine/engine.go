package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/open-cmuq/tapin/internal/models"
)

// Action distinguishes the two outcomes of a tap
type Action string

const (
	ActionCheckIn  Action = "check-in"
	ActionCheckOut Action = "check-out"
)

// ToggleResult is everything a single tap produces
type ToggleResult struct {
	Action     Action             `json:"action"`
	Session    *models.Session    `json:"session"`
	Attendance *models.Attendance `json:"attendance"`
	User       *models.User       `json:"user"`
	Scope      *models.Scope      `json:"scope"`
}

// StatusResult is the read-only probe response
type StatusResult struct {
	Active  bool            `json:"active"`
	Session *models.Session `json:"session,omitempty"`
}

// Engine turns RFID taps into attendance sessions. Every mutating operation
// runs inside a single database transaction; the partial unique index on
// active sessions backs up the in-transaction checks when taps race.
type Engine struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

// New creates an engine over an opened database. notifier may be nil, in
// which case eligibility events are silently skipped.
func New(gdb *gorm.DB, notifier Notifier) *Engine {
	return &Engine{
		db:       gdb,
		notifier: notifier,
		now:      time.Now,
	}
}

// pendingNote is a notification decided inside a transaction but dispatched
// only after it commits.
type pendingNote struct {
	user  models.User
	scope models.Scope
	kind  string
}

// Toggle is the single entry point for a tap: it resolves the card, then
// either checks the user in or out of the scope depending on current state.
func (e *Engine) Toggle(ctx context.Context, cardUID, scopeSlug string) (*ToggleResult, error) {
	var (
		result ToggleResult
		note   *pendingNote
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := resolveCard(tx, cardUID)
		if err != nil {
			return err
		}

		scope, err := findScope(tx, scopeSlug)
		if err != nil {
			return err
		}
		if scope.RequiresVerification() && !user.Verified() {
			return ErrIdentityNotVerified
		}
		if scope.Kind == models.KindFacility && !scope.Active {
			return ErrScopeInactive
		}

		current, err := activeSession(tx, user.ID, scope)
		if err != nil {
			return err
		}

		switch {
		case current != nil && current.ScopeID != scope.ID:
			// Checked into a different facility; must check out there first
			var other models.Scope
			if err := tx.First(&other, current.ScopeID).Error; err != nil {
				return err
			}
			return &ScopeConflictError{Slug: other.Slug, Name: other.Name}

		case current != nil:
			attendance, n, err := e.closeSession(tx, current, scope)
			if err != nil {
				return err
			}
			note = n
			result = ToggleResult{
				Action:     ActionCheckOut,
				Session:    current,
				Attendance: attendance,
				User:       user,
				Scope:      scope,
			}
			return nil

		default:
			session, attendance, err := e.openSession(tx, user, scope)
			if err != nil {
				return err
			}
			result = ToggleResult{
				Action:     ActionCheckIn,
				Session:    session,
				Attendance: attendance,
				User:       user,
				Scope:      scope,
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(note)
	return &result, nil
}

// Status reports whether a card is currently checked into a scope. No state
// is mutated and no verification is required.
func (e *Engine) Status(ctx context.Context, cardUID, scopeSlug string) (*StatusResult, error) {
	tx := e.db.WithContext(ctx)

	user, err := resolveCard(tx, cardUID)
	if err != nil {
		return nil, err
	}
	scope, err := findScope(tx, scopeSlug)
	if err != nil {
		return nil, err
	}

	var session models.Session
	err = tx.Where("user_id = ? AND scope_id = ? AND active", user.ID, scope.ID).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &StatusResult{Active: false}, nil
	}
	if err != nil {
		return nil, err
	}

	return &StatusResult{Active: true, Session: &session}, nil
}

// ActiveSessions lists currently open sessions, optionally for one scope
func (e *Engine) ActiveSessions(ctx context.Context, scopeSlug string) ([]models.Session, error) {
	q := e.db.WithContext(ctx).
		Where("sessions.active").
		Preload("User").
		Preload("Scope").
		Order("sessions.started_at ASC")
	if scopeSlug != "" {
		q = q.Joins("JOIN scopes ON scopes.id = sessions.scope_id").
			Where("scopes.slug = ?", scopeSlug)
	}

	var sessions []models.Session
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// resolveCard maps a raw card identifier to a user
func resolveCard(tx *gorm.DB, cardUID string) (*models.User, error) {
	var user models.User
	if err := tx.Where("card_uid = ?", cardUID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &user, nil
}

// findScope loads a scope by slug
func findScope(tx *gorm.DB, slug string) (*models.Scope, error) {
	var scope models.Scope
	if err := tx.Where("slug = ?", slug).First(&scope).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScopeNotFound
		}
		return nil, err
	}
	return &scope, nil
}

// activeSession returns the session a tap against scope would act on: for
// facilities the user's active session at any facility, for events the active
// session at this event only. Most recent first in case a prior bug ever left
// more than one.
func activeSession(tx *gorm.DB, userID uint, scope *models.Scope) (*models.Session, error) {
	q := tx.Where("sessions.user_id = ? AND sessions.active", userID)
	if scope.ExclusiveAcrossKind() {
		q = q.Joins("JOIN scopes ON scopes.id = sessions.scope_id").
			Where("scopes.kind = ?", scope.Kind)
	} else {
		q = q.Where("sessions.scope_id = ?", scope.ID)
	}

	var session models.Session
	err := q.Order("sessions.started_at DESC").First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// openSession creates a new active session after the capacity and
// current-location checks pass. Runs inside the caller's transaction.
func (e *Engine) openSession(tx *gorm.DB, user *models.User, scope *models.Scope) (*models.Session, *models.Attendance, error) {
	if scope.EndTime != nil && !e.now().Before(*scope.EndTime) {
		return nil, nil, ErrScopeEnded
	}

	if err := checkCapacity(tx, scope); err != nil {
		return nil, nil, err
	}

	if scope.ExclusiveAcrossKind() {
		// The pointer must be clear if no active session was found above; a
		// set pointer means the two drifted apart. Conditional so the store
		// enforces this, not just the in-transaction read.
		res := tx.Model(&models.User{}).
			Where("id = ? AND current_facility_id IS NULL", user.ID).
			Update("current_facility_id", scope.ID)
		if res.Error != nil {
			return nil, nil, res.Error
		}
		if res.RowsAffected == 0 {
			log.Printf("ERROR: user %d has a current facility pointer but no active session", user.ID)
			return nil, nil, ErrAlreadyActiveElsewhere
		}
		user.CurrentFacilityID = &scope.ID
	}

	session := models.Session{
		UserID:    user.ID,
		ScopeID:   scope.ID,
		StartedAt: e.now(),
		Active:    true,
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, nil, err
	}

	attendance, err := loadOrCreateAttendance(tx, user.ID, scope.ID)
	if err != nil {
		return nil, nil, err
	}
	return &session, attendance, nil
}

// checkCapacity admits iff active sessions < capacity. Counted inside the
// caller's transaction so two taps cannot both take the last slot.
func checkCapacity(tx *gorm.DB, scope *models.Scope) error {
	if scope.Capacity == nil {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Session{}).
		Where("scope_id = ? AND active", scope.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(*scope.Capacity) {
		return ErrCapacityExceeded
	}
	return nil
}

// closeSession ends a session, clears the current-location pointer when it
// mirrors this session, and folds the duration into the attendance aggregate.
// Shared by check-out and the administrative sweeps so the duration and
// eligibility accounting can never diverge between the two paths.
func (e *Engine) closeSession(tx *gorm.DB, session *models.Session, scope *models.Scope) (*models.Attendance, *pendingNote, error) {
	end := e.now()
	minutes := int(end.Sub(session.StartedAt).Minutes())

	if err := tx.Model(session).Updates(map[string]any{
		"ended_at":         end,
		"active":           false,
		"duration_minutes": minutes,
	}).Error; err != nil {
		return nil, nil, err
	}
	session.EndedAt = &end
	session.Active = false
	session.DurationMinutes = &minutes

	if scope.ExclusiveAcrossKind() {
		// Conditional on the pointer matching: an orphaned session must not
		// clobber a pointer that already moved on to another facility
		if err := tx.Model(&models.User{}).
			Where("id = ? AND current_facility_id = ?", session.UserID, session.ScopeID).
			Update("current_facility_id", nil).Error; err != nil {
			return nil, nil, err
		}
	}

	attendance, err := loadOrCreateAttendance(tx, session.UserID, scope.ID)
	if err != nil {
		return nil, nil, err
	}

	wasEligible := attendance.Eligible
	attendance.TotalMinutes += minutes
	attendance.Eligible = scope.MinimumMinutes == nil || attendance.TotalMinutes >= *scope.MinimumMinutes

	var note *pendingNote
	if !wasEligible && attendance.Eligible && !attendance.Notified {
		attendance.Notified = true
		var user models.User
		if err := tx.First(&user, session.UserID).Error; err != nil {
			return nil, nil, err
		}
		note = &pendingNote{user: user, scope: *scope, kind: KindEligibilityReached}
	}

	if err := tx.Save(attendance).Error; err != nil {
		return nil, nil, err
	}
	return attendance, note, nil
}

// loadOrCreateAttendance fetches the per-user, per-scope aggregate, creating
// it lazily on the first session
func loadOrCreateAttendance(tx *gorm.DB, userID, scopeID uint) (*models.Attendance, error) {
	var attendance models.Attendance
	err := tx.Where(models.Attendance{UserID: userID, ScopeID: scopeID}).
		FirstOrCreate(&attendance).Error
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

// dispatch fires a committed notification asynchronously. Failures are only
// logged: the notified flag is already persisted, so delivery is at most once.
func (e *Engine) dispatch(note *pendingNote) {
	if note == nil || e.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.notifier.Notify(ctx, &note.user, &note.scope, note.kind); err != nil {
			log.Printf("notification failed for user %d scope %s: %v", note.user.ID, note.scope.Slug, err)
		}
	}()
}
