package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	account "auctions/internal/accountService"
	auction "auctions/internal/auctionService"
	"auctions/internal/auctionerrors"
	model "auctions/internal/models"
	"auctions/internal/session"
	"auctions/services/auction/helpers"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -source=listing_handler.go -destination=mock_services.go -package=handler

type AuctionServiceInterface interface {
	CreateListing(ctx context.Context, in auction.NewListing) (model.Listing, error)
	GetListing(ctx context.Context, id uint) (model.Listing, error)
	ListActive(ctx context.Context) ([]model.Listing, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListByCategory(ctx context.Context, name string) (model.Category, []model.Listing, error)
	Watchlist(ctx context.Context, userID uint) ([]model.Listing, error)
	Watch(ctx context.Context, listingID, userID uint) error
	Unwatch(ctx context.Context, listingID, userID uint) error
	PlaceBid(ctx context.Context, listingID, userID uint, amount float64) (model.Bid, error)
	AddComment(ctx context.Context, listingID, userID uint, text string) (model.Comment, error)
	CloseListing(ctx context.Context, listingID, userID uint) error
}

type AccountServiceInterface interface {
	Register(ctx context.Context, reg account.Registration) (model.User, error)
	Authenticate(ctx context.Context, username, password string) (model.User, error)
	GetUser(ctx context.Context, id uint) (model.User, error)
}

type ListingHandler struct {
	service AuctionServiceInterface
	now     func() time.Time
}

func NewListingHandler(service AuctionServiceInterface) *ListingHandler {
	return &ListingHandler{service: service, now: func() time.Time { return time.Now().UTC() }}
}

// IndexHandler handles GET /
func (h *ListingHandler) IndexHandler(c *gin.Context) {
	listings, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		helpers.RenderError(c, "IndexHandler", err, nil)
		return
	}

	helpers.RenderPage(c, http.StatusOK, "index", gin.H{
		"Listings": helpers.NewListingCards(listings, h.now()),
	})
}

// CategoriesHandler handles GET /categories
func (h *ListingHandler) CategoriesHandler(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		helpers.RenderError(c, "CategoriesHandler", err, nil)
		return
	}

	helpers.RenderPage(c, http.StatusOK, "categories", gin.H{"Categories": categories})
}

// CategoryHandler handles GET /categories/:name
func (h *ListingHandler) CategoryHandler(c *gin.Context) {
	name := c.Param("name")
	category, listings, err := h.service.ListByCategory(c.Request.Context(), name)
	if err != nil {
		helpers.RenderError(c, "CategoryHandler", err, map[string]any{"category": name})
		return
	}

	helpers.RenderPage(c, http.StatusOK, "index", gin.H{
		"Heading":  category.Name,
		"Listings": helpers.NewListingCards(listings, h.now()),
	})
}

// WatchlistHandler handles GET /watchlist
func (h *ListingHandler) WatchlistHandler(c *gin.Context) {
	user, ok := session.CurrentUser(c)
	if !ok {
		helpers.RedirectToLogin(c)
		return
	}

	listings, err := h.service.Watchlist(c.Request.Context(), user.ID)
	if err != nil {
		helpers.RenderError(c, "WatchlistHandler", err, map[string]any{"user_id": user.ID})
		return
	}

	helpers.RenderPage(c, http.StatusOK, "watchlist", gin.H{
		"Listings": helpers.NewListingCards(listings, h.now()),
	})
}

// NewListingFormHandler handles GET /new
func (h *ListingHandler) NewListingFormHandler(c *gin.Context) {
	data, err := h.newListingData(c.Request.Context(), helpers.NewListingForm{})
	if err != nil {
		helpers.RenderError(c, "NewListingFormHandler", err, nil)
		return
	}
	helpers.RenderPage(c, http.StatusOK, "new", data)
}

// CreateListingHandler handles POST /new
func (h *ListingHandler) CreateListingHandler(c *gin.Context) {
	user, ok := session.CurrentUser(c)
	if !ok {
		helpers.RedirectToLogin(c)
		return
	}

	var form helpers.NewListingForm
	bindErr := c.ShouldBind(&form)
	data, err := h.newListingData(c.Request.Context(), form)
	if err != nil {
		helpers.RenderError(c, "CreateListingHandler", err, nil)
		return
	}
	if bindErr != nil {
		helpers.HandleBindError(c, "CreateListingHandler", "new", data, bindErr)
		return
	}
	endTime, err := helpers.ParseEndTime(form.EndTime)
	if err != nil {
		helpers.HandleBindError(c, "CreateListingHandler", "new", data, err)
		return
	}

	listing, err := h.service.CreateListing(c.Request.Context(), auction.NewListing{
		ListerID:     user.ID,
		Title:        form.Title,
		Description:  form.Description,
		InitialPrice: *form.InitialPrice,
		EndTime:      endTime,
		ImageURL:     form.ImageURL,
		CategoryID:   form.Category(),
	})
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		data["Message"] = message
		helpers.RenderPage(c, status, "new", data)
		helpers.LogFailure("CreateListingHandler", "failed to create listing", status, map[string]any{
			"user_id": user.ID,
			"title":   form.Title,
			"error":   err.Error(),
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/listings/"+strconv.FormatUint(uint64(listing.ID), 10))
	helpers.LogSuccess("CreateListingHandler", "listing created", map[string]any{
		"listing_id": listing.ID,
		"user_id":    user.ID,
	})
}

// ListingHandler handles GET /listings/:id, including the watch and unlist toggles
func (h *ListingHandler) ListingHandler(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		helpers.RenderError(c, "ListingHandler", auctionerrors.ErrListingNotFound, map[string]any{"id": c.Param("id")})
		return
	}

	if action := queryAction(c); action != "" {
		if helpers.CrossSite(c) {
			helpers.LogFailure("ListingHandler", "cross-site "+action+" refused", http.StatusForbidden, map[string]any{
				"listing_id": id,
				"referer":    c.GetHeader("Referer"),
				"origin":     c.GetHeader("Origin"),
			})
			h.renderListing(c, http.StatusForbidden, id, "Error: cross-site request refused")
			return
		}
		h.toggle(c, id, action)
		return
	}

	h.renderListing(c, http.StatusOK, id, "")
}

// ListingPostHandler handles POST /listings/:id with a bid amount, a comment or a
// watch/unwatch/unlist action
func (h *ListingHandler) ListingPostHandler(c *gin.Context) {
	id, ok := listingID(c)
	if !ok {
		helpers.RenderError(c, "ListingPostHandler", auctionerrors.ErrListingNotFound, map[string]any{"id": c.Param("id")})
		return
	}
	user, ok := session.CurrentUser(c)
	if !ok {
		helpers.RedirectToLogin(c)
		return
	}

	_, isComment := c.GetPostForm("comment_text")
	action := c.PostForm("action")
	switch {
	case c.PostForm("amount") != "":
		h.placeBid(c, id, user)
	case isComment:
		h.addComment(c, id, user)
	case action == actionWatch || action == actionUnwatch || action == actionUnlist:
		h.toggle(c, id, action)
	default:
		h.renderListing(c, http.StatusBadRequest, id, "Error: invalid input")
	}
}

func (h *ListingHandler) placeBid(c *gin.Context, id uint, user model.User) {
	var form helpers.BidForm
	if err := c.ShouldBind(&form); err != nil {
		helpers.LogFailure("ListingPostHandler", "binding error", http.StatusBadRequest, map[string]any{"error": err.Error()})
		h.renderListing(c, http.StatusBadRequest, id, "Error: Invalid bid amount")
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), id, user.ID, form.Amount)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		helpers.LogFailure("ListingPostHandler", "failed to place bid", status, map[string]any{
			"listing_id": id,
			"user_id":    user.ID,
			"amount":     form.Amount,
			"error":      err.Error(),
		})
		if errors.Is(err, auctionerrors.ErrListingNotFound) {
			helpers.RenderError(c, "ListingPostHandler", err, nil)
			return
		}
		h.renderListing(c, status, id, message)
		return
	}

	c.Redirect(http.StatusSeeOther, c.Request.URL.Path)
	helpers.LogSuccess("ListingPostHandler", "bid placed", map[string]any{
		"bid_id":     bid.ID,
		"listing_id": id,
		"user_id":    user.ID,
		"amount":     bid.Amount,
	})
}

func (h *ListingHandler) addComment(c *gin.Context, id uint, user model.User) {
	var form helpers.CommentForm
	if err := c.ShouldBind(&form); err != nil {
		helpers.LogFailure("ListingPostHandler", "binding error", http.StatusBadRequest, map[string]any{"error": err.Error()})
		h.renderListing(c, http.StatusBadRequest, id, "Comment cannot be empty.")
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), id, user.ID, form.Text)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		helpers.LogFailure("ListingPostHandler", "failed to add comment", status, map[string]any{
			"listing_id": id,
			"user_id":    user.ID,
			"error":      err.Error(),
		})
		if errors.Is(err, auctionerrors.ErrListingNotFound) {
			helpers.RenderError(c, "ListingPostHandler", err, nil)
			return
		}
		h.renderListing(c, status, id, message)
		return
	}

	c.Redirect(http.StatusSeeOther, c.Request.URL.Path)
	helpers.LogSuccess("ListingPostHandler", "comment added", map[string]any{
		"comment_id": comment.ID,
		"listing_id": id,
		"user_id":    user.ID,
	})
}

const (
	actionWatch   = "watch"
	actionUnwatch = "unwatch"
	actionUnlist  = "unlist"
)

// queryAction maps ?watch=true|false and ?unlist=true to a toggle action
func queryAction(c *gin.Context) string {
	switch {
	case c.Query("watch") == "true":
		return actionWatch
	case c.Query("watch") == "false":
		return actionUnwatch
	case c.Query("unlist") == "true":
		return actionUnlist
	}
	return ""
}

// toggle runs the watch/unwatch/unlist write and redirects back to the listing
func (h *ListingHandler) toggle(c *gin.Context, id uint, action string) {
	user, ok := session.CurrentUser(c)
	if !ok {
		helpers.RedirectToLogin(c)
		return
	}

	ctx := c.Request.Context()
	var err error
	switch action {
	case actionWatch:
		err = h.service.Watch(ctx, id, user.ID)
	case actionUnwatch:
		err = h.service.Unwatch(ctx, id, user.ID)
	case actionUnlist:
		err = h.service.CloseListing(ctx, id, user.ID)
	}
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		helpers.LogFailure("ListingHandler", "failed to "+action, status, map[string]any{
			"listing_id": id,
			"user_id":    user.ID,
			"error":      err.Error(),
		})
		if errors.Is(err, auctionerrors.ErrNotLister) {
			h.renderListing(c, status, id, message)
			return
		}
		helpers.RenderError(c, "ListingHandler", err, nil)
		return
	}

	status := http.StatusFound
	if c.Request.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	c.Redirect(status, c.Request.URL.Path)
	helpers.LogSuccess("ListingHandler", action+" succeeded", map[string]any{
		"listing_id": id,
		"user_id":    user.ID,
	})
}

// renderListing loads id and renders its page with an optional message
func (h *ListingHandler) renderListing(c *gin.Context, status int, id uint, message string) {
	listing, err := h.service.GetListing(c.Request.Context(), id)
	if err != nil {
		helpers.RenderError(c, "ListingHandler", err, map[string]any{"listing_id": id})
		return
	}

	var viewer *model.User
	if user, ok := session.CurrentUser(c); ok {
		viewer = &user
	}
	helpers.RenderPage(c, status, "listing", gin.H{
		"Page":    helpers.NewListingPage(listing, viewer, h.now()),
		"Message": message,
	})
}

func (h *ListingHandler) newListingData(ctx context.Context, form helpers.NewListingForm) (gin.H, error) {
	categories, err := h.service.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"Form":       form,
		"Categories": categories,
		"DefaultEnd": h.now().Add(model.DefaultAuctionDuration).Format(helpers.DatetimeLocalLayout),
	}, nil
}

func listingID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
