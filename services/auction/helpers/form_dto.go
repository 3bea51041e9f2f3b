package helpers

import (
	"errors"
	"strings"
	"time"
)

// DatetimeLocalLayout is what an HTML datetime-local input submits
const DatetimeLocalLayout = "2006-01-02T15:04"

// Form DTOs
type NewListingForm struct {
	Title        string   `form:"title" binding:"required,max=255"`
	Description  string   `form:"description" binding:"required"`
	InitialPrice *float64 `form:"initial_price" binding:"required,gte=0,lt=100000000"`
	EndTime      string   `form:"end_time"`
	ImageURL     string   `form:"image_url" binding:"omitempty,url"`
	CategoryID   uint     `form:"category"`
}

type BidForm struct {
	Amount float64 `form:"amount" binding:"required,gt=0"`
}

type CommentForm struct {
	Text string `form:"comment_text" binding:"required"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

type RegisterForm struct {
	Username     string `form:"username" binding:"required,max=150"`
	Email        string `form:"email" binding:"omitempty,email"`
	Password     string `form:"password" binding:"required"`
	Confirmation string `form:"confirmation"`
}

var errBadEndTime = errors.New("end time must be YYYY-MM-DDTHH:MM or RFC 3339")

// ParseEndTime reads an end time field. Empty input gives the zero time; a
// datetime-local value without zone is taken as UTC.
func ParseEndTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(DatetimeLocalLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, errBadEndTime
}

// Category returns the selected category, nil for "--None--"
func (f NewListingForm) Category() *uint {
	if f.CategoryID == 0 {
		return nil
	}
	id := f.CategoryID
	return &id
}
