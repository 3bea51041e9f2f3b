package session

import (
	model "auctions/internal/models"
	"auctions/utils"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the cookie carrying the signed session token
	CookieName = "session"

	currentUserKey = "currentUser"
)

// ErrInvalidSession is returned for a missing, expired or tampered token
var ErrInvalidSession = errors.New("invalid session")

// Manager issues and verifies HS256 session tokens stored in a cookie
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewManager creates a session manager. secure marks the cookie HTTPS-only.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a token for userID
func (m *Manager) Issue(userID uint) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        utils.GenerateID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns the user ID it was issued for
func (m *Manager) Parse(raw string) (uint, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidSession, claims.Subject)
	}
	return uint(id), nil
}

// Login sets the session cookie for userID
func (m *Manager) Login(c *gin.Context, userID uint) error {
	token, exp, err := m.Issue(userID)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout clears the session cookie
func (m *Manager) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserID returns the user ID from the request cookie, if a valid one is present
func (m *Manager) UserID(c *gin.Context) (uint, bool) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		return 0, false
	}
	id, err := m.Parse(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetCurrentUser stores the signed-in user on the request context
func SetCurrentUser(c *gin.Context, user model.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the signed-in user, if any
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}
