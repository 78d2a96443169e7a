package domain

import "time"

// MealEntry is a single logged meal. Append-only from the scheduler's
// perspective; produced by the food-logging collaborator.
type MealEntry struct {
	ID       int64
	UserID   int64
	Name     string
	Calories int
	Protein  float64
	Fat      float64
	Carbs    float64
	Date     time.Time // calendar date of the log
	LoggedAt time.Time // timestamp of logging; zero if unknown
}

// DailyTotals is the macro sum for one user and one date. Derived, never
// stored.
type DailyTotals struct {
	Calories int
	Protein  float64
	Fat      float64
	Carbs    float64
}

// DayTotals is one row of a weekly aggregate: totals keyed by date.
type DayTotals struct {
	Date     string // YYYY-MM-DD
	Calories int
	Protein  float64
	Fat      float64
	Carbs    float64
}

// DateKey formats t as the canonical calendar-date ledger key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Midnight truncates t to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole calendar days from a to b (b - a). Both
// dates are re-anchored in UTC before subtracting, so a 23- or 25-hour DST
// day still counts as exactly one day.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
