package helpers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"auctions/internal/auctionerrors"
	"auctions/internal/session"
	"auctions/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError re-renders page with a standardized message for binding failures
func HandleBindError(c *gin.Context, handlerName, page string, data gin.H, err error) {
	if data == nil {
		data = gin.H{}
	}
	data["Message"] = "Error: invalid input"
	RenderPage(c, http.StatusBadRequest, page, data)
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrListingNotFound):
		return http.StatusNotFound, "Error 404: Listing doesn't exist"
	case errors.Is(err, auctionerrors.ErrCategoryNotFound):
		return http.StatusNotFound, "Error 404: Category doesn't exist"
	case errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "Error: Invalid bid amount"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "Your bid must be greater than the current price."
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "This auction has ended."
	case errors.Is(err, auctionerrors.ErrNotLister):
		return http.StatusForbidden, "Only the lister can close this auction."
	case errors.Is(err, auctionerrors.ErrInvalidListing):
		return http.StatusBadRequest, "Error: invalid input"
	case errors.Is(err, auctionerrors.ErrInvalidComment):
		return http.StatusBadRequest, "Comment cannot be empty."
	case errors.Is(err, auctionerrors.ErrInvalidRegistration):
		return http.StatusBadRequest, "Username and password are required."
	case errors.Is(err, auctionerrors.ErrPasswordMismatch):
		return http.StatusBadRequest, "Passwords must match."
	case errors.Is(err, auctionerrors.ErrUsernameTaken):
		return http.StatusConflict, "Username already taken."
	case errors.Is(err, auctionerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username and/or password."
	case errors.Is(err, auctionerrors.ErrLoginRequired):
		return http.StatusUnauthorized, "You must be logged in."
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// LogFailure logs a failed operation, at error level only for server faults
func LogFailure(handlerName, message string, status int, ctx map[string]any) {
	ctx["handler"] = handlerName
	ctx["status"] = status
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+message, ctx)
		return
	}
	utils.Warn(handlerName+": "+message, ctx)
}

// RenderPage renders an HTML template with the signed-in user added under "User"
func RenderPage(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if user, ok := session.CurrentUser(c); ok {
		data["User"] = &user
	}
	c.HTML(status, page, data)
}

// RenderError renders the error page for err and logs it under handlerName
func RenderError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	if fields == nil {
		fields = map[string]any{}
	}
	fields["error"] = err.Error()
	LogFailure(handlerName, "request failed", status, fields)
	RenderPage(c, status, "error", gin.H{"Status": status, "Message": message})
}

// RedirectToLogin sends an anonymous user to the login page, remembering where they were
func RedirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.Path))
	c.Abort()
}

// SafeNext returns next when it is a local path, otherwise "/"
func SafeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// CrossSite reports whether the Origin or Referer header names a host other than
// the request's. Requests carrying neither header are treated as same-site.
func CrossSite(c *gin.Context) bool {
	for _, header := range []string{"Origin", "Referer"} {
		raw := c.GetHeader(header)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		return err != nil || u.Host != c.Request.Host
	}
	return false
}
