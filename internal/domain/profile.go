package domain

import "time"

// Goal values stored in the profile. Free-form strings are allowed; the
// weekly classifier treats anything unknown like a deficit goal.
const (
	GoalLoss     = "loss"
	GoalGain     = "gain"
	GoalMaintain = "maintain"
	GoalRecomp   = "recomp"
	GoalCutting  = "cutting"
)

// UserProfile is the scheduler's read-only view of a user. It is owned by
// the profile CRUD collaborator; the scheduler never writes it.
//
// Preference flags are nullable in storage; NULL means enabled, and the
// store maps that to true at scan time so callers see plain booleans.
type UserProfile struct {
	UserID int64
	Name   string
	Goal   string

	// Nutrition goals. Zero means unset.
	CaloriesGoal int
	ProteinGoal  float64
	FatGoal      float64
	CarbsGoal    float64

	RemindersEnabled  bool
	RemindersPerDay   int // 2..4, default 3
	ReengageEnabled   bool
	ProgressEnabled   bool
	WeekStatusEnabled bool

	LastActivityAt *time.Time
	CreatedAt      time.Time // immutable, anchors the weekly cycle
}

// ActivityBase returns the reference point for inactivity: the later of
// last activity and signup.
func (p *UserProfile) ActivityBase() time.Time {
	if p.LastActivityAt != nil && p.LastActivityAt.After(p.CreatedAt) {
		return *p.LastActivityAt
	}
	return p.CreatedAt
}

// HasFullGoals reports whether all four macro goals are configured.
func (p *UserProfile) HasFullGoals() bool {
	return p.CaloriesGoal > 0 && p.ProteinGoal > 0 && p.FatGoal > 0 && p.CarbsGoal > 0
}

// ClampRemindersPerDay normalizes the per-day reminder cap to the allowed
// 2..4 range, defaulting to 3 when unset.
func ClampRemindersPerDay(n int) int {
	switch {
	case n <= 0:
		return 3
	case n < 2:
		return 2
	case n > 4:
		return 4
	default:
		return n
	}
}
