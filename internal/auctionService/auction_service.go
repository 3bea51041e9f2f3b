package auction

import (
	"auctions/internal/auctionerrors"
	"auctions/internal/models"
	"auctions/internal/repository"
	"auctions/utils"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	maxTitleLength = 255
	// decimal(10,2) columns hold at most 8 integer digits
	maxPrice = 1e8
)

// validAmount reports whether v is a price below maxPrice in whole cents.
// NaN fails every comparison and is rejected.
func validAmount(v float64, allowZero bool) bool {
	if !(v > 0 || allowZero && v == 0) || !(v < maxPrice) {
		return false
	}
	cents := v * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}

// NewListing holds the lister-supplied fields of a listing
type NewListing struct {
	ListerID     uint
	Title        string
	Description  string
	InitialPrice float64
	EndTime      time.Time // zero means now + models.DefaultAuctionDuration
	ImageURL     string
	CategoryID   *uint
}

// AuctionService defines the business logic for listings, bids and watchers
type AuctionService struct {
	repo repository.AuctionDB
	now  func() time.Time
}

// Option customises an AuctionService
type Option func(*AuctionService)

// WithClock replaces the wall clock, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *AuctionService) { s.now = now }
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, opts ...Option) *AuctionService {
	s := &AuctionService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateListing validates and stores a new listing
func (s *AuctionService) CreateListing(ctx context.Context, in NewListing) (models.Listing, error) {
	now := s.now()
	if in.EndTime.IsZero() {
		in.EndTime = now.Add(models.DefaultAuctionDuration)
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	if err := validateListing(in, now); err != nil {
		return models.Listing{}, err
	}
	if in.ImageURL == "" {
		in.ImageURL = models.DefaultImageURL
	}

	if in.CategoryID != nil {
		if _, err := s.repo.GetCategoryByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, auctionerrors.ErrCategoryNotFound) {
				return models.Listing{}, fmt.Errorf("service: %w - unknown category %d", auctionerrors.ErrInvalidListing, *in.CategoryID)
			}
			return models.Listing{}, fmt.Errorf("service: failed to check category %d: %w", *in.CategoryID, err)
		}
	}

	listing := models.Listing{
		Title:        in.Title,
		Description:  in.Description,
		ListerID:     in.ListerID,
		EndTime:      in.EndTime.UTC(),
		InitialPrice: in.InitialPrice,
		ImageURL:     in.ImageURL,
		CategoryID:   in.CategoryID,
	}
	if err := s.repo.CreateListing(ctx, &listing); err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to create listing for user %d: %w", in.ListerID, err)
	}

	utils.Info("listing created", map[string]any{
		"listing_id": listing.ID,
		"lister_id":  listing.ListerID,
		"end_time":   listing.EndTime.Format(time.RFC3339),
	})
	return listing, nil
}

// validateListing checks the structural rules of a new listing
func validateListing(in NewListing, now time.Time) error {
	if in.ListerID == 0 {
		return fmt.Errorf("service: %w - missing lister", auctionerrors.ErrInvalidListing)
	}
	if in.Title == "" || len(in.Title) > maxTitleLength {
		return fmt.Errorf("service: %w - title must be 1 to %d characters", auctionerrors.ErrInvalidListing, maxTitleLength)
	}
	if in.Description == "" {
		return fmt.Errorf("service: %w - missing description", auctionerrors.ErrInvalidListing)
	}
	if !validAmount(in.InitialPrice, true) {
		return fmt.Errorf("service: %w - initial price must be whole cents below %.0f", auctionerrors.ErrInvalidListing, float64(maxPrice))
	}
	if !in.EndTime.After(now) {
		return fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidListing)
	}
	return nil
}

// GetListing settles and returns a listing with its bids, watchers and comments
func (s *AuctionService) GetListing(ctx context.Context, id uint) (models.Listing, error) {
	listing, err := s.loadSettled(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	return listing, nil
}

// ListActive returns the listings still open for bidding
func (s *AuctionService) ListActive(ctx context.Context) ([]models.Listing, error) {
	listings, err := s.repo.GetActiveListings(ctx, s.now(), nil)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active listings: %w", err)
	}
	return listings, nil
}

// ListCategories returns every category
func (s *AuctionService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

// ListByCategory returns the open listings of the named category
func (s *AuctionService) ListByCategory(ctx context.Context, name string) (models.Category, []models.Listing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, nil, fmt.Errorf("service: %w - empty category name", auctionerrors.ErrCategoryNotFound)
	}

	category, err := s.repo.GetCategoryByName(ctx, name)
	if err != nil {
		return models.Category{}, nil, fmt.Errorf("service: failed to get category %q: %w", name, err)
	}

	listings, err := s.repo.GetActiveListings(ctx, s.now(), &category.ID)
	if err != nil {
		return models.Category{}, nil, fmt.Errorf("service: failed to list listings in category %q: %w", name, err)
	}
	return category, listings, nil
}

// Watchlist returns every listing the user watches
func (s *AuctionService) Watchlist(ctx context.Context, userID uint) ([]models.Listing, error) {
	if userID == 0 {
		return nil, fmt.Errorf("service: %w - anonymous watchlist", auctionerrors.ErrLoginRequired)
	}
	listings, err := s.repo.GetWatchedListings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get watchlist for user %d: %w", userID, err)
	}
	for i := range listings {
		if err := s.Settle(ctx, &listings[i]); err != nil {
			return nil, err
		}
	}
	return listings, nil
}

// Watch adds the user to the watchers of a listing
func (s *AuctionService) Watch(ctx context.Context, listingID, userID uint) error {
	if userID == 0 {
		return fmt.Errorf("service: %w - anonymous watch", auctionerrors.ErrLoginRequired)
	}
	if err := s.repo.AddWatcher(ctx, listingID, userID); err != nil {
		return fmt.Errorf("service: failed to watch listing %d for user %d: %w", listingID, userID, err)
	}
	_, err := s.loadSettled(ctx, listingID)
	return err
}

// Unwatch removes the user from the watchers of a listing
func (s *AuctionService) Unwatch(ctx context.Context, listingID, userID uint) error {
	if userID == 0 {
		return fmt.Errorf("service: %w - anonymous unwatch", auctionerrors.ErrLoginRequired)
	}
	if err := s.repo.RemoveWatcher(ctx, listingID, userID); err != nil {
		return fmt.Errorf("service: failed to unwatch listing %d for user %d: %w", listingID, userID, err)
	}
	_, err := s.loadSettled(ctx, listingID)
	return err
}

// PlaceBid validates and records a user's bid on a listing
func (s *AuctionService) PlaceBid(ctx context.Context, listingID, userID uint, amount float64) (models.Bid, error) {
	if userID == 0 {
		return models.Bid{}, fmt.Errorf("service: %w - anonymous bid", auctionerrors.ErrLoginRequired)
	}
	if !validAmount(amount, false) {
		return models.Bid{}, fmt.Errorf("service: %w - bid amount must be positive whole cents", auctionerrors.ErrInvalidBid)
	}

	listing, err := s.loadSettled(ctx, listingID)
	if err != nil {
		return models.Bid{}, err
	}
	if !listing.IsActive(s.now()) {
		return models.Bid{}, fmt.Errorf("service: %w - listing %d ended at %s", auctionerrors.ErrAuctionClosed, listingID, listing.EndTime.Format(time.RFC3339))
	}
	if price := listing.CurrentPrice(); amount <= price {
		return models.Bid{}, fmt.Errorf("service: %w - current price is %.2f", auctionerrors.ErrBidTooLow, price)
	}

	bid := models.Bid{
		ListingID: listingID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: s.now(),
	}
	if err := s.repo.RecordBidForListing(ctx, &bid); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for listing %d by user %d: %w", listingID, userID, err)
	}
	return bid, nil
}

// AddComment stores a comment on a listing
func (s *AuctionService) AddComment(ctx context.Context, listingID, userID uint, text string) (models.Comment, error) {
	if userID == 0 {
		return models.Comment{}, fmt.Errorf("service: %w - anonymous comment", auctionerrors.ErrLoginRequired)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, fmt.Errorf("service: %w - empty comment text", auctionerrors.ErrInvalidComment)
	}

	comment := models.Comment{
		ListingID: listingID,
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddComment(ctx, &comment); err != nil {
		return models.Comment{}, fmt.Errorf("service: failed to add comment to listing %d by user %d: %w", listingID, userID, err)
	}
	if _, err := s.loadSettled(ctx, listingID); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// CloseListing ends an auction now. Only the lister may close it.
func (s *AuctionService) CloseListing(ctx context.Context, listingID, userID uint) error {
	listing, err := s.load(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.ListerID != userID {
		return fmt.Errorf("service: %w - user %d is not the lister of listing %d", auctionerrors.ErrNotLister, userID, listingID)
	}

	now := s.now()
	if listing.IsActive(now) {
		if err := s.repo.SetEndTime(ctx, listingID, now); err != nil {
			return fmt.Errorf("service: failed to close listing %d: %w", listingID, err)
		}
		listing.EndTime = now
	}
	return s.Settle(ctx, &listing)
}

// Settle assigns the winner of an ended auction. It is a no-op while the
// auction is open or once a winner exists; with no bids the listing stays winnerless.
func (s *AuctionService) Settle(ctx context.Context, listing *models.Listing) error {
	if listing.WinnerID != nil || listing.IsActive(s.now()) {
		return nil
	}

	highest, err := s.repo.GetHighestBid(ctx, listing.ID)
	if errors.Is(err, auctionerrors.ErrNoBids) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("service: failed to get highest bid for listing %d: %w", listing.ID, err)
	}

	assigned, err := s.repo.AssignWinner(ctx, listing.ID, highest.UserID)
	if err != nil {
		return fmt.Errorf("service: failed to assign winner for listing %d: %w", listing.ID, err)
	}
	if !assigned {
		// settled concurrently; reload to pick up the stored winner
		stored, err := s.load(ctx, listing.ID)
		if err != nil {
			return err
		}
		*listing = stored
		return nil
	}

	winnerID := highest.UserID
	winner := highest.User
	listing.WinnerID = &winnerID
	listing.Winner = &winner
	utils.Info("auction settled", map[string]any{
		"listing_id": listing.ID,
		"winner_id":  winnerID,
		"amount":     highest.Amount,
	})
	return nil
}

func (s *AuctionService) load(ctx context.Context, id uint) (models.Listing, error) {
	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return models.Listing{}, fmt.Errorf("service: failed to get listing %d: %w", id, err)
	}
	return listing, nil
}

// loadSettled loads a listing and settles it
func (s *AuctionService) loadSettled(ctx context.Context, id uint) (models.Listing, error) {
	listing, err := s.load(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	if err := s.Settle(ctx, &listing); err != nil {
		return models.Listing{}, err
	}
	return listing, nil
}
