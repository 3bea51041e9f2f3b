package server

import (
	model "auctions/internal/models"
	"auctions/internal/session"
	"auctions/services/auction/helpers"
	"auctions/utils"
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// UserLookup resolves the user a session was issued for
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (model.User, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if user, ok := session.CurrentUser(c); ok {
		fields["user_id"] = user.ID
	}
	utils.Info("HTTP Request", fields)
}

// SessionMiddleware loads the signed-in user from the session cookie. A cookie
// naming a user that no longer exists is cleared.
func SessionMiddleware(sessions *session.Manager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessions.UserID(c)
		if !ok {
			c.Next()
			return
		}

		user, err := users.GetUser(c.Request.Context(), id)
		if err != nil {
			utils.Warn("SessionMiddleware: dropping session", map[string]any{"user_id": id, "error": err.Error()})
			sessions.Logout(c)
			c.Next()
			return
		}

		session.SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireLogin redirects anonymous users to the login page
func RequireLogin(c *gin.Context) {
	if _, ok := session.CurrentUser(c); !ok {
		helpers.RedirectToLogin(c)
		return
	}
	c.Next()
}
