package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	account "auctions/internal/accountService"
	"auctions/internal/auctionerrors"
	model "auctions/internal/models"
	"auctions/internal/session"
	"auctions/web"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *MockAccountServiceInterface, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	mockService := NewMockAccountServiceInterface(ctrl)
	sessions := session.NewManager("0123456789abcdef", time.Hour, false)
	h := NewAuthHandler(mockService, sessions)

	router := gin.New()
	router.SetHTMLTemplate(web.MustTemplates())
	router.GET("/login", h.LoginFormHandler)
	router.POST("/login", h.LoginHandler)
	router.GET("/logout", h.LogoutHandler)
	router.GET("/register", h.RegisterFormHandler)
	router.POST("/register", h.RegisterHandler)
	return router, mockService, sessions
}

// sessionUser returns the user ID carried by the session cookie in w, if any
func sessionUser(t *testing.T, sessions *session.Manager, w *httptest.ResponseRecorder) (uint, bool) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			id, err := sessions.Parse(c.Value)
			require.NoError(t, err)
			return id, true
		}
	}
	return 0, false
}

// Test POST /login
func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name             string
		form             url.Values
		mockSetup        func(m *MockAccountServiceInterface)
		expectedStatus   int
		expectedLocation string
		expectedBody     string
		expectSession    bool
	}{
		{
			name: "success",
			form: url.Values{"username": {"alice"}, "password": {"pw"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Authenticate(gomock.Any(), "alice", "pw").Return(model.User{ID: 1, Username: "alice"}, nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/",
			expectSession:    true,
		},
		{
			name: "success_with_next",
			form: url.Values{"username": {"alice"}, "password": {"pw"}, "next": {"/listings/3"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Authenticate(gomock.Any(), "alice", "pw").Return(model.User{ID: 1, Username: "alice"}, nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/listings/3",
			expectSession:    true,
		},
		{
			name: "offsite_next_ignored",
			form: url.Values{"username": {"alice"}, "password": {"pw"}, "next": {"//evil.example"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Authenticate(gomock.Any(), "alice", "pw").Return(model.User{ID: 1, Username: "alice"}, nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/",
			expectSession:    true,
		},
		{
			name: "wrong_password",
			form: url.Values{"username": {"alice"}, "password": {"nope"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Authenticate(gomock.Any(), "alice", "nope").Return(model.User{}, auctionerrors.ErrInvalidCredentials)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Invalid username and/or password.",
		},
		{
			name:           "missing_fields",
			form:           url.Values{"username": {"alice"}},
			mockSetup:      func(m *MockAccountServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid username and/or password.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService, sessions := newAuthRouter(t)
			tt.mockSetup(mockService)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, postForm("/login", tt.form))

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				require.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			require.Contains(t, w.Body.String(), tt.expectedBody)

			id, ok := sessionUser(t, sessions, w)
			require.Equal(t, tt.expectSession, ok)
			if ok {
				require.Equal(t, uint(1), id)
			}
		})
	}
}

// Test POST /register
func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		form           url.Values
		mockSetup      func(m *MockAccountServiceInterface)
		expectedStatus int
		expectedBody   string
		expectSession  bool
	}{
		{
			name: "success",
			form: url.Values{"username": {"carol"}, "email": {"c@example.com"}, "password": {"pw"}, "confirmation": {"pw"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Register(gomock.Any(), account.Registration{
					Username: "carol", Email: "c@example.com", Password: "pw", Confirmation: "pw",
				}).Return(model.User{ID: 1, Username: "carol"}, nil)
			},
			expectedStatus: http.StatusSeeOther,
			expectSession:  true,
		},
		{
			name: "password_mismatch",
			form: url.Values{"username": {"carol"}, "password": {"pw"}, "confirmation": {"other"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Register(gomock.Any(), gomock.Any()).Return(model.User{}, auctionerrors.ErrPasswordMismatch)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Passwords must match.",
		},
		{
			name: "username_taken",
			form: url.Values{"username": {"carol"}, "password": {"pw"}, "confirmation": {"pw"}},
			mockSetup: func(m *MockAccountServiceInterface) {
				m.EXPECT().Register(gomock.Any(), gomock.Any()).Return(model.User{}, auctionerrors.ErrUsernameTaken)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "Username already taken.",
		},
		{
			name:           "bad_email",
			form:           url.Values{"username": {"carol"}, "email": {"not-an-email"}, "password": {"pw"}},
			mockSetup:      func(m *MockAccountServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Error: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService, sessions := newAuthRouter(t)
			tt.mockSetup(mockService)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, postForm("/register", tt.form))

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Contains(t, w.Body.String(), tt.expectedBody)
			_, ok := sessionUser(t, sessions, w)
			require.Equal(t, tt.expectSession, ok)
		})
	}
}

func TestLogoutAndForms(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
	require.Contains(t, w.Header().Get("Set-Cookie"), session.CookieName+"=;")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login?next=/watchlist", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `value="/watchlist"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/register", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `name="confirmation"`)
}
