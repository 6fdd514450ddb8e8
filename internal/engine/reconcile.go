package engine

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/open-cmuq/tapin/internal/models"
)

// ReconcileOrphans force-closes facility sessions whose user's
// current-location pointer disagrees with them (null or pointing at another
// facility). Such sessions are left behind when a process dies between
// writes; closing them restores the invariant. Idempotent: a clean state
// yields count 0. Each orphan is handled in its own transaction and failures
// are logged per record without stopping the sweep.
func (e *Engine) ReconcileOrphans(ctx context.Context) (int, error) {
	// Candidate scan only; each close re-checks the session in its own
	// transaction, since a candidate may tap out before its turn comes.
	var ids []uint
	err := e.db.WithContext(ctx).Model(&models.Session{}).
		Joins("JOIN scopes ON scopes.id = sessions.scope_id").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.active AND scopes.kind = ?", models.KindFacility).
		Where("users.current_facility_id IS NULL OR users.current_facility_id <> sessions.scope_id").
		Pluck("sessions.id", &ids).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		session, note, err := e.closeOrphan(ctx, id)
		if err != nil {
			log.Printf("reconcile: failed to close session %d: %v", id, err)
			continue
		}
		if session == nil {
			continue
		}

		log.Printf("WARNING: closed orphaned session %d (user %d, scope %d)", session.ID, session.UserID, session.ScopeID)
		e.dispatch(note)
		count++
	}

	return count, nil
}

// closeOrphan closes one candidate session in a single transaction. It
// reloads the session by id requiring it to still be active; a session
// closed between the scan and this transaction is skipped (nil, nil, nil)
// so its duration is never credited twice.
func (e *Engine) closeOrphan(ctx context.Context, sessionID uint) (*models.Session, *pendingNote, error) {
	var (
		session models.Session
		note    *pendingNote
	)

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND active", sessionID).First(&session).Error; err != nil {
			return err
		}

		var scope models.Scope
		if err := tx.First(&scope, session.ScopeID).Error; err != nil {
			return err
		}

		_, n, err := e.closeSession(tx, &session, &scope)
		if err != nil {
			return err
		}
		note = n
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &session, note, nil
}

// TimeoutAllActive force-closes every active facility session in one
// transaction and clears the matching current-location pointers. End-of-day
// policy reset; event sessions are scoped to event lifetime and left alone.
// Closes route through the same accumulation path as ordinary check-out so
// eligibility is never undercounted.
func (e *Engine) TimeoutAllActive(ctx context.Context) (int, error) {
	count := 0
	var notes []*pendingNote

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sessions []models.Session
		if err := tx.Joins("JOIN scopes ON scopes.id = sessions.scope_id").
			Where("sessions.active AND scopes.kind = ?", models.KindFacility).
			Find(&sessions).Error; err != nil {
			return err
		}

		for i := range sessions {
			session := &sessions[i]
			var scope models.Scope
			if err := tx.First(&scope, session.ScopeID).Error; err != nil {
				log.Printf("timeout: failed to load scope for session %d: %v", session.ID, err)
				continue
			}
			_, note, err := e.closeSession(tx, session, &scope)
			if err != nil {
				log.Printf("timeout: failed to close session %d: %v", session.ID, err)
				continue
			}
			if note != nil {
				notes = append(notes, note)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, note := range notes {
		e.dispatch(note)
	}
	return count, nil
}
