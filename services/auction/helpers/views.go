package helpers

import (
	"time"

	model "auctions/internal/models"
)

// ListingCard is one row of a listings index
type ListingCard struct {
	Listing      model.Listing
	CurrentPrice float64
	Active       bool
}

// ListingPage is the view of a single listing for the current user
type ListingPage struct {
	Listing      model.Listing
	CurrentPrice float64
	BidCount     int
	Active       bool
	Watching     bool
	IsLister     bool
	IsWinner     bool
}

// NewListingCards builds index rows, evaluating activity at now
func NewListingCards(listings []model.Listing, now time.Time) []ListingCard {
	cards := make([]ListingCard, 0, len(listings))
	for _, l := range listings {
		cards = append(cards, ListingCard{
			Listing:      l,
			CurrentPrice: l.CurrentPrice(),
			Active:       l.IsActive(now),
		})
	}
	return cards
}

// NewListingPage builds the detail view. user is nil for anonymous visitors.
func NewListingPage(l model.Listing, user *model.User, now time.Time) ListingPage {
	page := ListingPage{
		Listing:      l,
		CurrentPrice: l.CurrentPrice(),
		BidCount:     len(l.Bids),
		Active:       l.IsActive(now),
	}
	if user != nil {
		page.Watching = l.IsWatchedBy(user.ID)
		page.IsLister = l.ListerID == user.ID
		page.IsWinner = l.WinnerID != nil && *l.WinnerID == user.ID
	}
	return page
}
