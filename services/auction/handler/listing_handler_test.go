package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	auction "auctions/internal/auctionService"
	"auctions/internal/auctionerrors"
	model "auctions/internal/models"
	"auctions/internal/session"
	"auctions/web"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

var alice = &model.User{ID: 1, Username: "alice"}
var bob = &model.User{ID: 2, Username: "bob"}

// newListingRouter serves every listing route, signed in as user when non-nil
func newListingRouter(t *testing.T, user *model.User) (*gin.Engine, *MockAuctionServiceInterface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	mockService := NewMockAuctionServiceInterface(ctrl)
	h := NewListingHandler(mockService)

	router := gin.New()
	router.SetHTMLTemplate(web.MustTemplates())
	router.Use(func(c *gin.Context) {
		if user != nil {
			session.SetCurrentUser(c, *user)
		}
		c.Next()
	})
	router.GET("/", h.IndexHandler)
	router.GET("/categories", h.CategoriesHandler)
	router.GET("/categories/:name", h.CategoryHandler)
	router.GET("/watchlist", h.WatchlistHandler)
	router.GET("/new", h.NewListingFormHandler)
	router.POST("/new", h.CreateListingHandler)
	router.GET("/listings/:id", h.ListingHandler)
	router.POST("/listings/:id", h.ListingPostHandler)
	return router, mockService
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func lamp() model.Listing {
	return model.Listing{
		ID:           1,
		Title:        "Brass Lamp",
		Description:  "Old but shiny",
		ListerID:     alice.ID,
		Lister:       *alice,
		InitialPrice: 10,
		EndTime:      time.Now().Add(time.Hour),
		ImageURL:     model.DefaultImageURL,
		Bids:         []model.Bid{{ID: 1, Amount: 12, UserID: 2}, {ID: 2, Amount: 15, UserID: 3}},
	}
}

// Test browsing pages
func TestBrowseHandlers(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		mockSetup      func(m *MockAuctionServiceInterface)
		expectedStatus int
		expectedBody   []string
	}{
		{
			name: "index_lists_active",
			path: "/",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().ListActive(gomock.Any()).Return([]model.Listing{lamp()}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{"Active Listings", "Brass Lamp", "$15.00"},
		},
		{
			name: "index_service_error",
			path: "/",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().ListActive(gomock.Any()).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   []string{"internal server error"},
		},
		{
			name: "categories",
			path: "/categories",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().ListCategories(gomock.Any()).Return([]model.Category{{ID: 1, Name: "Toys"}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`href="/categories/Toys"`},
		},
		{
			name: "category_listings",
			path: "/categories/Toys",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().ListByCategory(gomock.Any(), "Toys").Return(model.Category{ID: 1, Name: "Toys"}, []model.Listing{lamp()}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{"<h2>Toys</h2>", "Brass Lamp"},
		},
		{
			name: "unknown_category",
			path: "/categories/Nope",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().ListByCategory(gomock.Any(), "Nope").Return(model.Category{}, nil, auctionerrors.ErrCategoryNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   []string{"Category doesn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := newListingRouter(t, nil)
			tt.mockSetup(mockService)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, tt.expectedStatus, w.Code)
			for _, s := range tt.expectedBody {
				require.Contains(t, w.Body.String(), s)
			}
		})
	}
}

// Test GET /listings/:id and its query toggles
func TestListingHandler(t *testing.T) {
	tests := []struct {
		name             string
		user             *model.User
		path             string
		referer          string
		mockSetup        func(m *MockAuctionServiceInterface)
		expectedStatus   int
		expectedLocation string
		expectedBody     []string
	}{
		{
			name: "view_anonymous",
			path: "/listings/1",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{"Brass Lamp", "$15.00", "Log in</a> to bid"},
		},
		{
			name: "view_as_lister_offers_close",
			user: alice,
			path: "/listings/1",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`value="unlist"`, "Add to Watchlist", `name="amount"`},
		},
		{
			name: "view_closed_shows_winner",
			user: bob,
			path: "/listings/1",
			mockSetup: func(m *MockAuctionServiceInterface) {
				l := lamp()
				l.EndTime = time.Now().Add(-time.Hour)
				l.WinnerID = &bob.ID
				l.Winner = bob
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(l, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{"Winner: bob", "You won this auction!"},
		},
		{
			name:           "bad_id",
			path:           "/listings/abc",
			mockSetup:      func(m *MockAuctionServiceInterface) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "missing_listing",
			path: "/listings/9",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(9)).Return(model.Listing{}, auctionerrors.ErrListingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   []string{"Error 404"},
		},
		{
			name:             "watch_requires_login",
			path:             "/listings/1?watch=true",
			mockSetup:        func(m *MockAuctionServiceInterface) {},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/login?next=%2Flistings%2F1",
		},
		{
			name: "watch",
			user: bob,
			path: "/listings/1?watch=true",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().Watch(gomock.Any(), uint(1), bob.ID).Return(nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/listings/1",
		},
		{
			name: "unwatch",
			user: bob,
			path: "/listings/1?watch=false",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().Unwatch(gomock.Any(), uint(1), bob.ID).Return(nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/listings/1",
		},
		{
			name: "unlist_by_lister",
			user: alice,
			path: "/listings/1?unlist=true",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().CloseListing(gomock.Any(), uint(1), alice.ID).Return(nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/listings/1",
		},
		{
			name: "unlist_by_other_user",
			user: bob,
			path: "/listings/1?unlist=true",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().CloseListing(gomock.Any(), uint(1), bob.ID).Return(auctionerrors.ErrNotLister)
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   []string{"Only the lister can close this auction."},
		},
		{
			name:    "unlist_from_other_site_refused",
			user:    alice,
			path:    "/listings/1?unlist=true",
			referer: "https://evil.example/lure",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   []string{"cross-site request refused"},
		},
		{
			name:    "watch_from_same_site",
			user:    bob,
			path:    "/listings/1?watch=true",
			referer: "http://example.com/listings/1",
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().Watch(gomock.Any(), uint(1), bob.ID).Return(nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/listings/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := newListingRouter(t, tt.user)
			tt.mockSetup(mockService)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				require.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			for _, s := range tt.expectedBody {
				require.Contains(t, w.Body.String(), s)
			}
		})
	}
}

// Test POST /listings/:id
func TestListingPostHandler(t *testing.T) {
	tests := []struct {
		name             string
		user             *model.User
		form             url.Values
		mockSetup        func(m *MockAuctionServiceInterface)
		expectedStatus   int
		expectedLocation string
		expectedBody     string
	}{
		{
			name:             "anonymous_redirected",
			form:             url.Values{"amount": {"20"}},
			mockSetup:        func(m *MockAuctionServiceInterface) {},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/login?next=%2Flistings%2F1",
		},
		{
			name: "bid_accepted",
			user: bob,
			form: url.Values{"amount": {"20"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().PlaceBid(gomock.Any(), uint(1), bob.ID, 20.0).Return(model.Bid{ID: 3, Amount: 20}, nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/listings/1",
		},
		{
			name: "bid_equal_to_price",
			user: bob,
			form: url.Values{"amount": {"15"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().PlaceBid(gomock.Any(), uint(1), bob.ID, 15.0).Return(model.Bid{}, auctionerrors.ErrBidTooLow)
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "Your bid must be greater than the current price.",
		},
		{
			name: "bid_on_closed_auction",
			user: bob,
			form: url.Values{"amount": {"50"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().PlaceBid(gomock.Any(), uint(1), bob.ID, 50.0).Return(model.Bid{}, auctionerrors.ErrAuctionClosed)
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   "This auction has ended.",
		},
		{
			name: "bid_not_a_number",
			user: bob,
			form: url.Values{"amount": {"lots"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Error: Invalid bid amount",
		},
		{
			name: "comment_added",
			user: bob,
			form: url.Values{"comment_text": {"Nice lamp"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().AddComment(gomock.Any(), uint(1), bob.ID, "Nice lamp").Return(model.Comment{ID: 1}, nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/listings/1",
		},
		{
			name: "comment_on_missing_listing",
			user: bob,
			form: url.Values{"comment_text": {"hello"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().AddComment(gomock.Any(), uint(1), bob.ID, "hello").Return(model.Comment{}, auctionerrors.ErrListingNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "Error 404",
		},
		{
			name: "empty_amount_with_comment_posts_comment",
			user: bob,
			form: url.Values{"amount": {""}, "comment_text": {"Nice lamp"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().AddComment(gomock.Any(), uint(1), bob.ID, "Nice lamp").Return(model.Comment{ID: 2}, nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/listings/1",
		},
		{
			name: "watch_action",
			user: bob,
			form: url.Values{"action": {"watch"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().Watch(gomock.Any(), uint(1), bob.ID).Return(nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/listings/1",
		},
		{
			name: "unwatch_action",
			user: bob,
			form: url.Values{"action": {"unwatch"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().Unwatch(gomock.Any(), uint(1), bob.ID).Return(nil)
			},
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/listings/1",
		},
		{
			name: "unlist_action_by_other_user",
			user: bob,
			form: url.Values{"action": {"unlist"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().CloseListing(gomock.Any(), uint(1), bob.ID).Return(auctionerrors.ErrNotLister)
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   "Only the lister can close this auction.",
		},
		{
			name: "unknown_action",
			user: bob,
			form: url.Values{"action": {"delete"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Error: invalid input",
		},
		{
			name: "neither_field",
			user: bob,
			form: url.Values{"other": {"x"}},
			mockSetup: func(m *MockAuctionServiceInterface) {
				m.EXPECT().GetListing(gomock.Any(), uint(1)).Return(lamp(), nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Error: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, mockService := newListingRouter(t, tt.user)
			tt.mockSetup(mockService)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, postForm("/listings/1", tt.form))

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				require.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			require.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

// Test GET/POST /new and GET /watchlist
func TestCreateListingHandler(t *testing.T) {
	categories := []model.Category{{ID: 2, Name: "Home"}}

	t.Run("form_lists_categories", func(t *testing.T) {
		router, mockService := newListingRouter(t, alice)
		mockService.EXPECT().ListCategories(gomock.Any()).Return(categories, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/new", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `<option value="2">Home</option>`)
	})

	t.Run("created", func(t *testing.T) {
		router, mockService := newListingRouter(t, alice)
		mockService.EXPECT().ListCategories(gomock.Any()).Return(categories, nil)
		mockService.EXPECT().CreateListing(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in auction.NewListing) (model.Listing, error) {
				require.Equal(t, alice.ID, in.ListerID)
				require.Equal(t, "Lamp", in.Title)
				require.Equal(t, 10.0, in.InitialPrice)
				require.Equal(t, time.Date(2030, 1, 2, 15, 4, 0, 0, time.UTC), in.EndTime)
				require.NotNil(t, in.CategoryID)
				require.Equal(t, uint(2), *in.CategoryID)
				return model.Listing{ID: 5}, nil
			})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/new", url.Values{
			"title":         {"Lamp"},
			"description":   {"Brass"},
			"initial_price": {"10"},
			"end_time":      {"2030-01-02T15:04"},
			"category":      {"2"},
		}))
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/listings/5", w.Header().Get("Location"))
	})

	t.Run("missing_title", func(t *testing.T) {
		router, mockService := newListingRouter(t, alice)
		mockService.EXPECT().ListCategories(gomock.Any()).Return(categories, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/new", url.Values{"description": {"Brass"}, "initial_price": {"10"}}))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "Error: invalid input")
	})

	t.Run("bad_end_time", func(t *testing.T) {
		router, mockService := newListingRouter(t, alice)
		mockService.EXPECT().ListCategories(gomock.Any()).Return(categories, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/new", url.Values{
			"title":         {"Lamp"},
			"description":   {"Brass"},
			"initial_price": {"10"},
			"end_time":      {"next week"},
		}))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("service_rejects", func(t *testing.T) {
		router, mockService := newListingRouter(t, alice)
		mockService.EXPECT().ListCategories(gomock.Any()).Return(categories, nil)
		mockService.EXPECT().CreateListing(gomock.Any(), gomock.Any()).Return(model.Listing{}, auctionerrors.ErrInvalidListing)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, postForm("/new", url.Values{
			"title":         {"Lamp"},
			"description":   {"Brass"},
			"initial_price": {"10"},
			"end_time":      {"2001-01-01T00:00"},
		}))
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "Error: invalid input")
	})

	t.Run("watchlist", func(t *testing.T) {
		router, mockService := newListingRouter(t, bob)
		mockService.EXPECT().Watchlist(gomock.Any(), bob.ID).Return([]model.Listing{lamp()}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/watchlist", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Brass Lamp")
	})

	t.Run("watchlist_anonymous", func(t *testing.T) {
		router, _ := newListingRouter(t, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/watchlist", nil))
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/login?next=%2Fwatchlist", w.Header().Get("Location"))
	})
}
