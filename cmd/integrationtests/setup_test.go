package integrationtests

import (
	account "auctions/internal/accountService"
	auction "auctions/internal/auctionService"
	"auctions/internal/database"
	"auctions/internal/repository"
	"auctions/internal/server"
	"auctions/internal/session"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestApp is the full application over a private in-memory sqlite database
type TestApp struct {
	Router *gin.Engine
	DB     *gorm.DB
	Repo   *repository.GormRepo
}

// SetupTestApp wires database, services and router the way main does
func SetupTestApp(t *testing.T) *TestApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, database.InMemoryDSN(uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedCategories(db, []string{"Fashion", "Toys", "Electronics"}))

	repo := repository.NewGormRepo(db)
	router := server.SetupRouter(server.Dependencies{
		Auctions: auction.NewAuctionService(repo),
		Accounts: account.NewAccountService(repo, bcrypt.MinCost),
		Sessions: session.NewManager("integration-secret-0123", time.Hour, false),
		DB:       db,
	})
	return &TestApp{Router: router, DB: db, Repo: repo}
}

// Browser sends requests to the app and keeps the session cookie between them
type Browser struct {
	t       *testing.T
	router  *gin.Engine
	session *http.Cookie
}

func (a *TestApp) NewBrowser(t *testing.T) *Browser {
	return &Browser{t: t, router: a.Router}
}

// Get executes a GET request
func (b *Browser) Get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// PostForm executes a form-encoded POST request
func (b *Browser) PostForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// LoggedIn reports whether the browser holds a session cookie
func (b *Browser) LoggedIn() bool {
	return b.session != nil
}

func (b *Browser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.session != nil {
		req.AddCookie(b.session)
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name != session.CookieName {
			continue
		}
		if c.Value == "" || c.MaxAge < 0 {
			b.session = nil
		} else {
			b.session = c
		}
	}
	return w
}

// Register signs a new user up and leaves the browser logged in as them
func (b *Browser) Register(username, password string) {
	b.t.Helper()
	w := b.PostForm("/register", url.Values{
		"username":     {username},
		"email":        {username + "@example.com"},
		"password":     {password},
		"confirmation": {password},
	})
	require.Equal(b.t, http.StatusSeeOther, w.Code, w.Body.String())
	require.True(b.t, b.LoggedIn())
}
