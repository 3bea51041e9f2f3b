package repository

import (
	"auctions/internal/auctionerrors"
	model "auctions/internal/models"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// AuctionDB defines the listing storage interface for the auction system
type AuctionDB interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id uint) (model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (model.Category, error)
	CreateListing(ctx context.Context, listing *model.Listing) error
	GetListing(ctx context.Context, id uint) (model.Listing, error)
	GetActiveListings(ctx context.Context, now time.Time, categoryID *uint) ([]model.Listing, error)
	GetWatchedListings(ctx context.Context, userID uint) ([]model.Listing, error)
	AddWatcher(ctx context.Context, listingID, userID uint) error
	RemoveWatcher(ctx context.Context, listingID, userID uint) error
	RecordBidForListing(ctx context.Context, bid *model.Bid) error
	GetHighestBid(ctx context.Context, listingID uint) (model.Bid, error)
	SetEndTime(ctx context.Context, listingID uint, end time.Time) error
	AssignWinner(ctx context.Context, listingID, userID uint) (bool, error)
	AddComment(ctx context.Context, comment *model.Comment) error
}

// UserDB defines the account storage interface
type UserDB interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uint) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

// GormRepo implements AuctionDB and UserDB on top of a gorm connection
type GormRepo struct {
	db *gorm.DB
}

// listingWatcher is a row of the Listing.Watchers join table
type listingWatcher struct {
	ListingID uint `gorm:"primaryKey"`
	UserID    uint `gorm:"primaryKey"`
}

func (listingWatcher) TableName() string { return "listing_watchers" }

// NewGormRepo creates a repository over db
func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// ListCategories returns every category ordered by name
func (r *GormRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryByID returns a single category
func (r *GormRepo) GetCategoryByID(ctx context.Context, id uint) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return model.Category{}, fmt.Errorf("get category %d: %w", id, notFound(err, auctionerrors.ErrCategoryNotFound))
	}
	return c, nil
}

// GetCategoryByName returns the category with an exact name match
func (r *GormRepo) GetCategoryByName(ctx context.Context, name string) (model.Category, error) {
	var c model.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return model.Category{}, fmt.Errorf("get category %q: %w", name, notFound(err, auctionerrors.ErrCategoryNotFound))
	}
	return c, nil
}

// CreateListing inserts a listing and fills in its ID
func (r *GormRepo) CreateListing(ctx context.Context, listing *model.Listing) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error; err != nil {
		return fmt.Errorf("create listing %q: %w", listing.Title, err)
	}
	return nil
}

// GetListing loads a listing together with everything its detail page shows
func (r *GormRepo) GetListing(ctx context.Context, id uint) (model.Listing, error) {
	var l model.Listing
	err := r.db.WithContext(ctx).
		Preload("Lister").
		Preload("Category").
		Preload("Winner").
		Preload("Watchers").
		Preload("Bids", func(db *gorm.DB) *gorm.DB { return db.Order("bids.id ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("comments.created_at DESC, comments.id DESC") }).
		Preload("Comments.User").
		First(&l, id).Error
	if err != nil {
		return model.Listing{}, fmt.Errorf("get listing %d: %w", id, notFound(err, auctionerrors.ErrListingNotFound))
	}
	return l, nil
}

// GetActiveListings returns listings still open at now, optionally limited to one category
func (r *GormRepo) GetActiveListings(ctx context.Context, now time.Time, categoryID *uint) ([]model.Listing, error) {
	q := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Bids").
		Where("end_time > ?", now.UTC())
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var listings []model.Listing
	if err := q.Order("end_time ASC, id ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("get active listings: %w", err)
	}
	return listings, nil
}

// GetWatchedListings returns every listing userID watches, open or not
func (r *GormRepo) GetWatchedListings(ctx context.Context, userID uint) ([]model.Listing, error) {
	var listings []model.Listing
	err := r.db.WithContext(ctx).
		Joins("JOIN listing_watchers ON listing_watchers.listing_id = listings.id").
		Where("listing_watchers.user_id = ?", userID).
		Preload("Category").
		Preload("Winner").
		Preload("Bids").
		Order("listings.end_time ASC, listings.id ASC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("get watched listings for user %d: %w", userID, err)
	}
	return listings, nil
}

// AddWatcher adds userID to the watchers of a listing. Adding twice is a no-op.
func (r *GormRepo) AddWatcher(ctx context.Context, listingID, userID uint) error {
	if err := r.listingExists(ctx, listingID); err != nil {
		return fmt.Errorf("add watcher to listing %d: %w", listingID, err)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&listingWatcher{ListingID: listingID, UserID: userID}).Error
	if err != nil {
		return fmt.Errorf("add watcher to listing %d: %w", listingID, err)
	}
	return nil
}

// RemoveWatcher removes userID from the watchers of a listing. Removing a non-watcher is a no-op.
func (r *GormRepo) RemoveWatcher(ctx context.Context, listingID, userID uint) error {
	if err := r.listingExists(ctx, listingID); err != nil {
		return fmt.Errorf("remove watcher from listing %d: %w", listingID, err)
	}
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND user_id = ?", listingID, userID).
		Delete(&listingWatcher{}).Error
	if err != nil {
		return fmt.Errorf("remove watcher from listing %d: %w", listingID, err)
	}
	return nil
}

// RecordBidForListing stores a bid and fills in its ID
func (r *GormRepo) RecordBidForListing(ctx context.Context, bid *model.Bid) error {
	if err := r.listingExists(ctx, bid.ListingID); err != nil {
		return fmt.Errorf("record bid for listing %d: %w", bid.ListingID, err)
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(bid).Error; err != nil {
		return fmt.Errorf("record bid for listing %d: %w", bid.ListingID, err)
	}
	return nil
}

// GetHighestBid returns the largest bid on a listing with its bidder, earliest first on ties
func (r *GormRepo) GetHighestBid(ctx context.Context, listingID uint) (model.Bid, error) {
	var b model.Bid
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("listing_id = ?", listingID).
		Order("amount DESC, id ASC").
		First(&b).Error
	if err != nil {
		return model.Bid{}, fmt.Errorf("get highest bid for listing %d: %w", listingID, notFound(err, auctionerrors.ErrNoBids))
	}
	return b, nil
}

// SetEndTime moves the end of an auction
func (r *GormRepo) SetEndTime(ctx context.Context, listingID uint, end time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ?", listingID).
		Update("end_time", end.UTC())
	if res.Error != nil {
		return fmt.Errorf("set end time for listing %d: %w", listingID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set end time for listing %d: %w", listingID, auctionerrors.ErrListingNotFound)
	}
	return nil
}

// AssignWinner sets the winner only if none is set yet. It reports whether this call set it.
func (r *GormRepo) AssignWinner(ctx context.Context, listingID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND winner_id IS NULL", listingID).
		Update("winner_id", userID)
	if res.Error != nil {
		return false, fmt.Errorf("assign winner for listing %d: %w", listingID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// AddComment stores a comment and fills in its ID
func (r *GormRepo) AddComment(ctx context.Context, comment *model.Comment) error {
	if err := r.listingExists(ctx, comment.ListingID); err != nil {
		return fmt.Errorf("add comment to listing %d: %w", comment.ListingID, err)
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("add comment to listing %d: %w", comment.ListingID, err)
	}
	return nil
}

// CreateUser inserts a user; a taken username yields ErrUsernameTaken
func (r *GormRepo) CreateUser(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create user %q: %w", user.Username, auctionerrors.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return nil
}

// GetUserByID returns a single user
func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return model.User{}, fmt.Errorf("get user %d: %w", id, notFound(err, auctionerrors.ErrUserNotFound))
	}
	return u, nil
}

// GetUserByUsername returns the user with the given username
func (r *GormRepo) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return model.User{}, fmt.Errorf("get user %q: %w", username, notFound(err, auctionerrors.ErrUserNotFound))
	}
	return u, nil
}

func (r *GormRepo) listingExists(ctx context.Context, id uint) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return auctionerrors.ErrListingNotFound
	}
	return nil
}

// notFound swaps gorm's not-found error for the domain sentinel
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
