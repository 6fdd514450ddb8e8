package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-cmuq/tapin/internal/engine"
)

// ToggleRequest is the payload a reader adapter sends per tap
type ToggleRequest struct {
	CardUID string `json:"card_uid" binding:"required"`
	Scope   string `json:"scope" binding:"required"`
}

// Toggle handles one RFID tap
func Toggle(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ToggleRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := eng.Toggle(c.Request.Context(), input.CardUID, input.Scope)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// Status reports whether a card is currently checked into a scope
func Status(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		cardUID := c.Query("card_uid")
		scope := c.Query("scope")
		if cardUID == "" || scope == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "card_uid and scope are required"})
			return
		}

		status, err := eng.Status(c.Request.Context(), cardUID, scope)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// ActiveSessions lists open sessions, optionally filtered by ?scope=
func ActiveSessions(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := eng.ActiveSessions(c.Request.Context(), c.Query("scope"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sessions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(sessions), "sessions": sessions})
	}
}

// Reconcile force-closes orphaned facility sessions
func Reconcile(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := eng.ReconcileOrphans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Reconciliation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// Timeout force-closes every active facility session
func Timeout(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := eng.TimeoutAllActive(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Timeout sweep failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// respondEngineError maps engine failures onto HTTP statuses
func respondEngineError(c *gin.Context, err error) {
	var conflict *engine.ScopeConflictError
	switch {
	case errors.Is(err, engine.ErrIdentityNotFound), errors.Is(err, engine.ErrScopeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrIdentityNotVerified), errors.Is(err, engine.ErrScopeInactive), errors.Is(err, engine.ErrScopeEnded):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "conflicting_scope": conflict.Slug})
	case errors.Is(err, engine.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrAlreadyActiveElsewhere):
		log.Printf("ERROR: consistency breach surfaced to client: %v", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("toggle failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
