package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response; data is omitted when nil
func JSONResponse(c *gin.Context, status int, data any, message string) {
	body := gin.H{
		"status":  status,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// JSONError sends a structured error response. Server-side failures are logged
// and their detail is kept out of the body.
func JSONError(c *gin.Context, status int, err error, message string) {
	body := gin.H{
		"status":  status,
		"message": message,
	}
	if status >= http.StatusInternalServerError {
		Error(message, map[string]any{
			"path":   c.Request.URL.Path,
			"status": status,
			"error":  err.Error(),
		})
	} else {
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}
