package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoBids           = errors.New("no bids found for listing")
	ErrUsernameTaken    = errors.New("username already taken")
)

// business logic errors
var (
	ErrInvalidBid          = errors.New("invalid bid")
	ErrBidTooLow           = errors.New("bid amount too low")
	ErrAuctionClosed       = errors.New("auction has ended")
	ErrNotLister           = errors.New("only the lister can close the auction")
	ErrInvalidListing      = errors.New("invalid listing")
	ErrInvalidComment      = errors.New("invalid comment")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrPasswordMismatch    = errors.New("passwords must match")
	ErrInvalidCredentials  = errors.New("invalid username and/or password")
	ErrLoginRequired       = errors.New("login required")
)
