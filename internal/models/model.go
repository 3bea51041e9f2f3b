package models

import "time"

// DefaultAuctionDuration is how long a listing stays open when no end time is given
const DefaultAuctionDuration = 7 * 24 * time.Hour

// DefaultImageURL is shown for listings created without an image
const DefaultImageURL = "https://upload.wikimedia.org/wikipedia/commons/thumb/3/3f/Placeholder_view_vector.svg/310px-Placeholder_view_vector.svg.png"

// User represents a registered participant in the auction
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
}

func (User) TableName() string { return "users" }

// Category groups listings for browsing
type Category struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:250;uniqueIndex;not null" json:"name"`
}

func (Category) TableName() string { return "categories" }

// Listing represents an auction listing
type Listing struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"listed_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	ListerID     uint      `gorm:"not null;index" json:"lister_id"`
	Lister       User      `gorm:"foreignKey:ListerID;constraint:OnDelete:CASCADE" json:"lister"`
	EndTime      time.Time `gorm:"not null;index" json:"end_time"`
	InitialPrice float64   `gorm:"type:decimal(10,2);not null" json:"initial_price"`
	ImageURL     string    `gorm:"size:2048" json:"image_url"`
	CategoryID   *uint     `gorm:"index" json:"category_id"`
	Category     *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	WinnerID     *uint     `gorm:"index" json:"winner_id"`
	Winner       *User     `gorm:"foreignKey:WinnerID;constraint:OnDelete:SET NULL" json:"winner,omitempty"`
	Watchers     []User    `gorm:"many2many:listing_watchers;constraint:OnDelete:CASCADE" json:"-"`
	Bids         []Bid     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments     []Comment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Listing) TableName() string { return "listings" }

// IsActive reports whether bidding is still open at now
func (l Listing) IsActive(now time.Time) bool {
	return l.EndTime.After(now)
}

// HighestBid returns the largest of the loaded bids, nil when there are none.
// Equal amounts keep the first bid in retrieval order.
func (l Listing) HighestBid() *Bid {
	var highest *Bid
	for i := range l.Bids {
		if highest == nil || l.Bids[i].Amount > highest.Amount {
			highest = &l.Bids[i]
		}
	}
	return highest
}

// CurrentPrice is the highest bid amount, or the initial price when nobody has bid
func (l Listing) CurrentPrice() float64 {
	if b := l.HighestBid(); b != nil {
		return b.Amount
	}
	return l.InitialPrice
}

// IsWatchedBy reports whether userID is among the loaded watchers
func (l Listing) IsWatchedBy(userID uint) bool {
	for _, w := range l.Watchers {
		if w.ID == userID {
			return true
		}
	}
	return false
}

// Bid represents a user's bid on a listing
type Bid struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
}

func (Bid) TableName() string { return "bids" }

// Comment is a user's remark on a listing
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"commented_at"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
}

func (Comment) TableName() string { return "comments" }
