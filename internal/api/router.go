package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-cmuq/tapin/internal/engine"
)

// NewRouter wires the attendance endpoints onto a gin engine
func NewRouter(eng *engine.Engine, adminKey string) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	attendance := router.Group("/api/attendance")
	{
		attendance.POST("/toggle", Toggle(eng))
		attendance.GET("/status", Status(eng))
		attendance.GET("/active", ActiveSessions(eng))
	}

	admin := router.Group("/api/admin")
	admin.Use(AdminKeyMiddleware(adminKey))
	{
		admin.POST("/reconcile", Reconcile(eng))
		admin.POST("/timeout", Timeout(eng))
	}

	return router
}
