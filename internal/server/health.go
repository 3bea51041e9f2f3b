package server

import (
	"auctions/internal/database"
	"auctions/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler handles GET /healthz by pinging the database
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), db); err != nil {
			utils.JSONError(c, http.StatusServiceUnavailable, err, "database unavailable")
			utils.Error("HealthHandler: database ping failed", map[string]any{"error": err.Error()})
			return
		}
		utils.JSONResponse(c, http.StatusOK, gin.H{"database": "ok"}, "healthy")
	}
}
