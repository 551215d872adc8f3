package notifications

import (
	"errors"
	"time"
)

var (
	// ErrNotificationNotFound is returned when a notification does not exist for the user
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrInvalidCategory is returned for an unknown notification category
	ErrInvalidCategory = errors.New("invalid notification category")
	// ErrMissingContent is returned when title or message is empty
	ErrMissingContent = errors.New("title and message are required")
	// ErrNoRecipients is returned when a broadcast names nobody
	ErrNoRecipients = errors.New("no recipients")
)

// Category classifies a notification
type Category string

const (
	CategoryComicUpdate Category = "comic_update"
	CategorySystem      Category = "system"
	CategoryFollow      Category = "follow"
	CategoryComment     Category = "comment"
	CategoryPromotion   Category = "promotion"
)

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	switch c {
	case CategoryComicUpdate, CategorySystem, CategoryFollow, CategoryComment, CategoryPromotion:
		return true
	}
	return false
}

// Notification is a persisted message addressed to one user
type Notification struct {
	ID        int64     `json:"notificationId"`
	UserID    int64     `json:"userId"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the fields a caller must supply
func (n *Notification) Validate() error {
	if !n.Category.IsValid() {
		return ErrInvalidCategory
	}
	if n.Title == "" || n.Message == "" {
		return ErrMissingContent
	}
	return nil
}

// Listing defaults and bounds
const (
	DefaultSinceDays = 30
	MaxSinceDays     = 180
	DefaultLimit     = 100
	MaxLimit         = 200
)

// ListOptions selects a page of a user's recent notifications.
// Zero values take the defaults; out-of-range values are clamped.
type ListOptions struct {
	SinceDays int
	Limit     int
	Page      int
}

func (o ListOptions) normalize() ListOptions {
	if o.SinceDays == 0 {
		o.SinceDays = DefaultSinceDays
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	o.SinceDays = clamp(o.SinceDays, 1, MaxSinceDays)
	o.Limit = clamp(o.Limit, 1, MaxLimit)
	if o.Page < 1 {
		o.Page = 1
	}
	return o
}

func (o ListOptions) offset() int {
	return (o.Page - 1) * o.Limit
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PageMeta describes a listed page
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	SinceDays  int `json:"sinceDays"`
}

// Page is one page of notifications
type Page struct {
	Notifications []*Notification `json:"data"`
	Meta          PageMeta        `json:"meta"`
}
