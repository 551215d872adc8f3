package quests

import (
	"errors"
	"time"
)

var (
	// ErrQuestNotFound is returned when the assignment does not exist for the caller
	ErrQuestNotFound = errors.New("quest not found")
	// ErrAlreadyClaimed is returned when the reward was already collected
	ErrAlreadyClaimed = errors.New("quest reward already claimed")
	// ErrNotCompleted is returned when claiming before progress reaches the target
	ErrNotCompleted = errors.New("quest not completed")
	// ErrWalletNotFound is returned when the user has no wallet to credit
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrNoTemplates is returned when there are no quest templates to assign from
	ErrNoTemplates = errors.New("no quest templates available")
	// ErrInvalidAmount is returned for non-positive increments
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidCategory is returned for unknown categories
	ErrInvalidCategory = errors.New("invalid quest category")
)

// Category groups quests by the activity that advances them
type Category string

const (
	CategoryCheckin  Category = "checkin"
	CategoryReading  Category = "reading"
	CategoryComment  Category = "comment"
	CategoryFavorite Category = "favorite"
	CategoryRating   Category = "rating"
)

// IsValid checks if the category is valid
func (c Category) IsValid() bool {
	switch c {
	case CategoryCheckin, CategoryReading, CategoryComment, CategoryFavorite, CategoryRating:
		return true
	}
	return false
}

// Result is the counter state after an increment
type Result struct {
	UserQuestID int64 `json:"id"`
	Progress    int   `json:"progress"`
	Target      int   `json:"target"`
	Completed   bool  `json:"completed"`

	previous int
}

// JustCompleted reports whether this increment is the one that reached the target
func (r *Result) JustCompleted() bool {
	return r.Completed && r.previous < r.Target
}

// Assignment is one quest handed to a user for a day
type Assignment struct {
	ID       int64     `json:"id"`
	QuestID  int64     `json:"questId"`
	Title    string    `json:"title"`
	Category Category  `json:"category"`
	Reward   int       `json:"reward"`
	Progress int       `json:"progress"`
	Target   int       `json:"target"`
	Claimed  bool      `json:"claimed"`
	Day      time.Time `json:"day"`
}

// Completed reports whether progress has reached the target
func (a *Assignment) Completed() bool {
	return a.Progress >= a.Target
}

// ClaimResult describes a credited reward
type ClaimResult struct {
	UserQuestID int64 `json:"id"`
	Reward      int   `json:"reward"`
	Balance     int64 `json:"balance"`
}

// dayOf truncates t to its calendar day in UTC
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
