package engage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// memRepo is an in-memory store.Repo for evaluator tests.
type memRepo struct {
	mu       sync.Mutex
	profiles map[int64]*domain.UserProfile
	meals    map[int64][]domain.MealEntry
	notified map[string]bool
	sent     map[string][]time.Time

	// When set, every call scoped to failUser returns failErr.
	failUser int64
	failErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		profiles: make(map[int64]*domain.UserProfile),
		meals:    make(map[int64][]domain.MealEntry),
		notified: make(map[string]bool),
		sent:     make(map[string][]time.Time),
	}
}

func notifKey(userID int64, cat domain.Category, day time.Time) string {
	return fmt.Sprintf("%d|%s|%s", userID, cat, domain.DateKey(day))
}

func sentKey(userID int64, cat domain.Category) string {
	return fmt.Sprintf("%d|%s", userID, cat)
}

// scopedErr reports the injected failure when the call targets failUser.
// Callers hold mu.
func (m *memRepo) scopedErr(userID int64) error {
	if m.failErr != nil && userID == m.failUser {
		return m.failErr
	}
	return nil
}

func (m *memRepo) ListEligibleUsers(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, p := range m.profiles {
		if p.CaloriesGoal > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memRepo) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("no profile %d", userID)
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) DailyTotals(ctx context.Context, userID int64, day time.Time) (domain.DailyTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return domain.DailyTotals{}, err
	}
	var t domain.DailyTotals
	for _, meal := range m.meals[userID] {
		if domain.DateKey(meal.Date) == domain.DateKey(day) {
			t.Calories += meal.Calories
			t.Protein += meal.Protein
			t.Fat += meal.Fat
			t.Carbs += meal.Carbs
		}
	}
	return t, nil
}

func (m *memRepo) MealsOn(ctx context.Context, userID int64, day time.Time) ([]domain.MealEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return nil, err
	}
	var res []domain.MealEntry
	for _, meal := range m.meals[userID] {
		if domain.DateKey(meal.Date) == domain.DateKey(day) {
			res = append(res, meal)
		}
	}
	return res, nil
}

func (m *memRepo) LastMealOn(ctx context.Context, userID int64, day time.Time) (*domain.MealEntry, error) {
	meals, err := m.MealsOn(ctx, userID, day)
	if err != nil || len(meals) == 0 {
		return nil, err
	}
	last := meals[len(meals)-1]
	return &last, nil
}

func (m *memRepo) WeeklyTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return nil, err
	}
	byDate := make(map[string]*domain.DayTotals)
	for _, meal := range m.meals[userID] {
		key := domain.DateKey(meal.Date)
		if key < domain.DateKey(from) || key > domain.DateKey(to) {
			continue
		}
		d, ok := byDate[key]
		if !ok {
			d = &domain.DayTotals{Date: key}
			byDate[key] = d
		}
		d.Calories += meal.Calories
		d.Protein += meal.Protein
		d.Fat += meal.Fat
		d.Carbs += meal.Carbs
	}
	var res []domain.DayTotals
	for _, d := range byDate {
		res = append(res, *d)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

func (m *memRepo) WasNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return false, err
	}
	return m.notified[notifKey(userID, cat, day)], nil
}

func (m *memRepo) RecordNotified(ctx context.Context, userID int64, cat domain.Category, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return err
	}
	m.notified[notifKey(userID, cat, day)] = true
	return nil
}

func (m *memRepo) LastSentAt(ctx context.Context, userID int64, cat domain.Category) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return nil, err
	}
	ts := m.sent[sentKey(userID, cat)]
	if len(ts) == 0 {
		return nil, nil
	}
	last := ts[len(ts)-1]
	return &last, nil
}

func (m *memRepo) RecordSentAt(ctx context.Context, userID int64, cat domain.Category, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return err
	}
	key := sentKey(userID, cat)
	m.sent[key] = append(m.sent[key], at)
	return nil
}

func (m *memRepo) CountSentToday(ctx context.Context, userID int64, cat domain.Category, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.scopedErr(userID); err != nil {
		return 0, err
	}
	n := 0
	for _, ts := range m.sent[sentKey(userID, cat)] {
		if domain.DateKey(ts) == domain.DateKey(day) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Close() error { return nil }

// sentCount returns how many sends were recorded for (user, category).
func (m *memRepo) sentCount(userID int64, cat domain.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent[sentKey(userID, cat)])
}

// fakeSender captures outgoing messages.
type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	users []int64
	err   error
}

func (f *fakeSender) Send(ctx context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	f.users = append(f.users, userID)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

// fakeGen returns a fixed text for every category; empty means "no
// suggestion" everywhere.
type fakeGen struct {
	text string
	err  error
}

func (g *fakeGen) ReminderSuggestion(ctx context.Context, in ReminderInput) (string, error) {
	return g.text, g.err
}
func (g *fakeGen) AchievementMessage(ctx context.Context, in AchievementInput) (string, error) {
	return g.text, g.err
}
func (g *fakeGen) StreakAdvice(ctx context.Context, in StreakInput) (string, error) {
	return g.text, g.err
}
func (g *fakeGen) ReengageMessage(ctx context.Context, in ReengageInput) (string, error) {
	return g.text, g.err
}
func (g *fakeGen) WeeklyRecommendation(ctx context.Context, in WeeklyInput) (string, error) {
	return g.text, g.err
}

// newTestEngine wires an Engine over the fakes with a fixed clock.
func newTestEngine(repo *memRepo, gen Generator, sender Sender, now time.Time) *Engine {
	return NewEngine(repo, gen, sender, zap.NewNop(),
		WithClock(func() time.Time { return now }),
	)
}

// at builds a local time on a fixed reference date.
func at(hour, min int) time.Time {
	return time.Date(2026, time.August, 20, hour, min, 0, 0, time.Local)
}

func TestRunTickEvaluatesAllEligibleUsers(t *testing.T) {
	repo := newMemRepo()
	now := at(12, 0)
	repo.profiles[1] = &domain.UserProfile{
		UserID: 1, CaloriesGoal: 2000, ProteinGoal: 150, CarbsGoal: 200,
		RemindersEnabled: true, RemindersPerDay: 3,
		CreatedAt: now.Add(-1 * time.Hour),
	}
	repo.profiles[2] = &domain.UserProfile{
		UserID: 2, CaloriesGoal: 1800, ProteinGoal: 120, CarbsGoal: 180,
		RemindersEnabled: true, RemindersPerDay: 3,
		CreatedAt: now.Add(-1 * time.Hour),
	}

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "eat something"}, sender, now)
	e.RunTick(context.Background())

	if got := sender.count(); got != 2 {
		t.Fatalf("want 2 reminders across users, got %d", got)
	}
	for _, text := range sender.sent {
		if !strings.HasPrefix(text, "🔔 ") {
			t.Fatalf("reminder text missing prefix: %q", text)
		}
	}
}

func TestRunTickIsolatesStorageFailurePerUser(t *testing.T) {
	repo := newMemRepo()
	now := at(12, 0)
	repo.profiles[1] = &domain.UserProfile{
		UserID: 1, CaloriesGoal: 2000, ProteinGoal: 150, CarbsGoal: 200,
		RemindersEnabled: true, RemindersPerDay: 3,
		CreatedAt: now.Add(-1 * time.Hour),
	}
	repo.profiles[2] = &domain.UserProfile{
		UserID: 2, CaloriesGoal: 1800, ProteinGoal: 120, CarbsGoal: 180,
		RemindersEnabled: true, RemindersPerDay: 3,
		CreatedAt: now.Add(-1 * time.Hour),
	}
	// Every storage call for user 1 fails; user 2 must be unaffected.
	repo.failUser = 1
	repo.failErr = errors.New("connection reset")

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "eat something"}, sender, now)
	e.RunTick(context.Background())

	if got := sender.count(); got != 1 {
		t.Fatalf("want exactly the healthy user's reminder, got %d sends", got)
	}
	if len(sender.users) != 1 || sender.users[0] != 2 {
		t.Fatalf("reminder went to %v, want user 2", sender.users)
	}
	if repo.sentCount(1, domain.CategoryMealReminder) != 0 {
		t.Fatalf("failing user must have no ledger rows")
	}
}
