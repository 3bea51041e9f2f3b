package handler

import (
	"net/http"

	account "auctions/internal/accountService"
	"auctions/internal/session"
	"auctions/services/auction/helpers"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service  AccountServiceInterface
	sessions *session.Manager
}

func NewAuthHandler(service AccountServiceInterface, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{service: service, sessions: sessions}
}

// LoginFormHandler handles GET /login
func (h *AuthHandler) LoginFormHandler(c *gin.Context) {
	helpers.RenderPage(c, http.StatusOK, "login", gin.H{"Next": c.Query("next")})
}

// LoginHandler handles POST /login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var form helpers.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		helpers.LogFailure("LoginHandler", "binding error", http.StatusBadRequest, map[string]any{"error": err.Error()})
		helpers.RenderPage(c, http.StatusBadRequest, "login", gin.H{
			"Next":    c.PostForm("next"),
			"Message": "Invalid username and/or password.",
		})
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		helpers.RenderPage(c, status, "login", gin.H{"Next": form.Next, "Message": message})
		helpers.LogFailure("LoginHandler", "login failed", status, map[string]any{
			"username": form.Username,
			"error":    err.Error(),
		})
		return
	}

	if err := h.sessions.Login(c, user.ID); err != nil {
		helpers.RenderError(c, "LoginHandler", err, map[string]any{"user_id": user.ID})
		return
	}

	c.Redirect(http.StatusSeeOther, helpers.SafeNext(form.Next))
	helpers.LogSuccess("LoginHandler", "user logged in", map[string]any{"user_id": user.ID})
}

// LogoutHandler handles GET /logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	h.sessions.Logout(c)
	c.Redirect(http.StatusFound, "/")
}

// RegisterFormHandler handles GET /register
func (h *AuthHandler) RegisterFormHandler(c *gin.Context) {
	helpers.RenderPage(c, http.StatusOK, "register", nil)
}

// RegisterHandler handles POST /register
func (h *AuthHandler) RegisterHandler(c *gin.Context) {
	var form helpers.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", "register", nil, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), account.Registration{
		Username:     form.Username,
		Email:        form.Email,
		Password:     form.Password,
		Confirmation: form.Confirmation,
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		helpers.RenderPage(c, status, "register", gin.H{"Message": message})
		helpers.LogFailure("RegisterHandler", "registration failed", status, map[string]any{
			"username": form.Username,
			"error":    err.Error(),
		})
		return
	}

	if err := h.sessions.Login(c, user.ID); err != nil {
		helpers.RenderError(c, "RegisterHandler", err, map[string]any{"user_id": user.ID})
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
	helpers.LogSuccess("RegisterHandler", "user registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
}
