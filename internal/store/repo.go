package store

import (
	"context"
	"errors"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Repo is the storage contract the scheduler consumes. Profiles and meals
// are owned by other components and only read here; the two ledger tables
// (notification_log, sent_log) are append-only and written exclusively
// through RecordNotified / RecordSentAt.
type Repo interface {
	// ListEligibleUsers returns users that can receive any notification:
	// profile exists and a calorie goal is configured.
	ListEligibleUsers(ctx context.Context) ([]int64, error)
	GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)

	DailyTotals(ctx context.Context, userID int64, day time.Time) (domain.DailyTotals, error)
	// MealsOn returns the meals logged on a date, in logging order.
	MealsOn(ctx context.Context, userID int64, day time.Time) ([]domain.MealEntry, error)
	// LastMealOn returns the most recent meal of the date, or nil.
	LastMealOn(ctx context.Context, userID int64, day time.Time) (*domain.MealEntry, error)
	// WeeklyTotals returns per-day totals for [from, to], days without
	// entries omitted, ordered by date.
	WeeklyTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error)

	// Date-keyed ledger: at most one record per (user, category, date).
	WasNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) (bool, error)
	RecordNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) error

	// Timestamp ledger: append-only send log with per-category history.
	LastSentAt(ctx context.Context, userID int64, cat domain.Category) (*time.Time, error)
	RecordSentAt(ctx context.Context, userID int64, cat domain.Category, at time.Time) error
	CountSentToday(ctx context.Context, userID int64, cat domain.Category, day time.Time) (int, error)

	Close() error
}
