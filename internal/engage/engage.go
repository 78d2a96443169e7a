// Package engage decides, per user and per tick, whether any proactive
// message should go out: meal reminders, goal congratulations, adherence
// streak coaching, re-engagement nudges and weekly status reports.
//
// Evaluators are stateless between ticks; every decision is recomputed from
// storage. The only writes are ledger appends, and they always happen after
// a successful send, so a crash can at worst cause one duplicate message
// later (at-least-once delivery).
package engage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-denys/meal-fit-ai/internal/domain"
	"github.com/your-denys/meal-fit-ai/internal/store"
)

// Sender delivers a finished message to a user. telegram.Gateway implements
// this; failures are logged per user and never abort the tick.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Generator produces message bodies for each category. An empty string with
// a nil error is a legitimate "no suggestion" outcome and is not retried
// within the tick.
type Generator interface {
	ReminderSuggestion(ctx context.Context, in ReminderInput) (string, error)
	AchievementMessage(ctx context.Context, in AchievementInput) (string, error)
	StreakAdvice(ctx context.Context, in StreakInput) (string, error)
	ReengageMessage(ctx context.Context, in ReengageInput) (string, error)
	WeeklyRecommendation(ctx context.Context, in WeeklyInput) (string, error)
}

// ReminderInput carries the context a "time to eat" message is built from.
type ReminderInput struct {
	Goal               string
	CaloriesGoal       int
	ProteinGoal        float64
	CarbsGoal          float64
	Totals             domain.DailyTotals
	EatenToday         []string
	Hour               int
	LastMealName       string
	LastMealMinutesAgo int // -1 when unknown
}

// AchievementInput describes a reached daily goal.
type AchievementInput struct {
	Category domain.Category
	Goal     string
	Totals   domain.DailyTotals
}

// StreakInput describes a sustained 5-day adherence pattern.
type StreakInput struct {
	Category domain.Category
	Goal     string
	Days     int
}

// ReengageInput describes an inactivity nudge.
type ReengageInput struct {
	Tier          domain.Category
	Name          string
	HoursInactive int
}

// WeeklyInput carries the classified cycle for the recommendation prompt.
type WeeklyInput struct {
	Status         domain.WeekStatus
	Goal           string
	AvgDeficit     float64
	AdherencePct   float64
	ProteinDaysMet int
	Index          int
}

// Engine runs one evaluation pass over all eligible users.
type Engine struct {
	repo    store.Repo
	gen     Generator // nil disables AI content
	sender  Sender
	log     *zap.Logger
	now     func() time.Time
	workers int
	timeout time.Duration
}

// Option tweaks Engine construction.
type Option func(*Engine)

// WithClock replaces the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWorkers bounds per-tick concurrency.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithEvalTimeout caps a single user's evaluation, so one stuck user cannot
// stall the tick.
func WithEvalTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine wires an Engine. gen may be nil; content-gated categories then
// simply never fire.
func NewEngine(repo store.Repo, gen Generator, sender Sender, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:    repo,
		gen:     gen,
		sender:  sender,
		log:     log,
		now:     time.Now,
		workers: 8,
		timeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// RunTick evaluates every eligible user once. Users are independent and run
// on a bounded worker pool; evaluators for one user run sequentially so
// sends to the same user never interleave.
func (e *Engine) RunTick(ctx context.Context) {
	runID := uuid.NewString()[:8]
	now := e.now()
	log := e.log.With(zap.String("tick", runID))

	users, err := e.repo.ListEligibleUsers(ctx)
	if err != nil {
		log.Error("list eligible users failed", zap.Error(err))
		return
	}
	if len(users) == 0 {
		return
	}
	log.Debug("tick started", zap.Int("users", len(users)))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup
	for _, userID := range users {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			uctx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()
			e.evaluateUser(uctx, log, userID, now)
		}(userID)
	}
	wg.Wait()
	log.Debug("tick finished")
}

// evaluateUser runs all five evaluators for one user. Any failure is an
// operational log line; nothing propagates to other users or the driver.
func (e *Engine) evaluateUser(ctx context.Context, log *zap.Logger, userID int64, now time.Time) {
	p, err := e.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		log.Warn("get profile failed", zap.Int64("userID", userID), zap.Error(err))
		return
	}

	type evaluator struct {
		name string
		fn   func(context.Context, *domain.UserProfile, time.Time) error
	}
	for _, ev := range []evaluator{
		{"reminder", e.evaluateReminder},
		{"achievement", e.evaluateAchievements},
		{"streak", e.evaluateStreaks},
		{"reengage", e.evaluateReengage},
		{"week_status", e.evaluateWeekStatus},
	} {
		if err := ev.fn(ctx, p, now); err != nil {
			log.Warn("evaluator failed",
				zap.String("evaluator", ev.name),
				zap.Int64("userID", userID),
				zap.Error(err),
			)
		}
	}
}

// deliver sends text and, only on success, appends a send-log row for cat.
// A sent-but-unrecorded message is a tolerable duplicate risk; a recorded-
// but-unsent one is not, hence the ordering.
func (e *Engine) deliver(ctx context.Context, userID int64, cat domain.Category, text string, at time.Time) error {
	if err := e.sender.Send(ctx, userID, text); err != nil {
		return err
	}
	return e.repo.RecordSentAt(ctx, userID, cat, at)
}

// deliverOnce is deliver for date-keyed categories.
func (e *Engine) deliverOnce(ctx context.Context, userID int64, cat domain.Category, text string, day time.Time) error {
	if err := e.sender.Send(ctx, userID, text); err != nil {
		return err
	}
	return e.repo.RecordNotified(ctx, userID, cat, day)
}
