package engage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

func weekProfile(now time.Time) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:            9,
		Goal:              domain.GoalLoss,
		CaloriesGoal:      2000,
		ProteinGoal:       150,
		FatGoal:           70,
		WeekStatusEnabled: true,
		// Exactly the last day of the first signup-anchored cycle.
		CreatedAt: domain.Midnight(now).AddDate(0, 0, -6),
	}
}

func logDay(repo *memRepo, userID int64, daysAgo int, calories int, protein, fat float64, now time.Time) {
	day := domain.Midnight(now).AddDate(0, 0, -daysAgo)
	repo.meals[userID] = append(repo.meals[userID], domain.MealEntry{
		ID:       int64(len(repo.meals[userID]) + 1),
		UserID:   userID,
		Name:     "day total",
		Calories: calories,
		Protein:  protein,
		Fat:      fat,
		Date:     day,
		LoggedAt: day.Add(12 * time.Hour),
	})
}

func TestWeekStatusBalancedLossWeek(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(19, 0)
	// Calories exactly on goal every day, protein met 6 of 7 days.
	for d := 0; d < 7; d++ {
		protein := 150.0
		if d == 3 {
			protein = 100
		}
		logDay(repo, 9, d, 2000, protein, 60, now)
	}

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "keep it up"}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), weekProfile(now), now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("want weekly report, got %d sends", sender.count())
	}
	text := sender.last()
	if !strings.Contains(text, "Balanced") {
		t.Fatalf("want balance status, got: %q", text)
	}
	// 0.5*100 + 0.5*(6/7*100) = 92 floored.
	if !strings.Contains(text, "Week index: 92%") {
		t.Fatalf("want index 92, got: %q", text)
	}
	if !strings.Contains(text, "Protein goal met: 6 of 7 days") {
		t.Fatalf("protein summary wrong: %q", text)
	}
	done, _ := repo.WasNotified(context.Background(), 9, domain.CategoryWeekStatus, now)
	if !done {
		t.Fatalf("cycle not recorded after send")
	}
}

func TestWeekStatusOnlyOnCycleBoundary(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(19, 0)
	for d := 0; d < 7; d++ {
		logDay(repo, 9, d, 1800, 150, 60, now)
	}
	p := weekProfile(now)
	p.CreatedAt = domain.Midnight(now).AddDate(0, 0, -5) // mid-cycle

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "x"}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), p, now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sender.count() != 0 {
		t.Fatalf("report fired off the cycle boundary")
	}
}

func TestWeekStatusOnlyAtReportHour(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(18, 45)
	for d := 0; d < 7; d++ {
		logDay(repo, 9, d, 1800, 150, 60, now)
	}

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "x"}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), weekProfile(now), now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sender.count() != 0 {
		t.Fatalf("weekly report is only evaluated at 19:00")
	}
}

func TestWeekStatusRequiresEnoughData(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(19, 0)
	logDay(repo, 9, 0, 1800, 150, 60, now)
	logDay(repo, 9, 2, 1700, 140, 55, now)

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "x"}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), weekProfile(now), now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sender.count() != 0 {
		t.Fatalf("fewer than 3 days of data, cycle must be skipped")
	}
	done, _ := repo.WasNotified(context.Background(), 9, domain.CategoryWeekStatus, now)
	if done {
		t.Fatalf("skipped cycle must not be recorded")
	}
}

func TestWeekStatusIdempotent(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(19, 0)
	for d := 0; d < 7; d++ {
		logDay(repo, 9, d, 1800, 150, 60, now)
	}

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "x"}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), weekProfile(now), now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if err := e.evaluateWeekStatus(context.Background(), weekProfile(now), now); err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("weekly report sent twice for one cycle")
	}
}

func TestWeekStatusReportShipsWithoutRecommendation(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(19, 0)
	for d := 0; d < 7; d++ {
		logDay(repo, 9, d, 1800, 150, 60, now)
	}

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: ""}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), weekProfile(now), now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sender.count() != 1 {
		t.Fatalf("numeric report must ship without AI content")
	}
	if strings.Contains(sender.last(), "Recommendation") {
		t.Fatalf("unexpected recommendation block: %q", sender.last())
	}
	done, _ := repo.WasNotified(context.Background(), 9, domain.CategoryWeekStatus, now)
	if !done {
		t.Fatalf("cycle must be recorded even without recommendation text")
	}
}

func TestWeekStatusRequiresBothGoals(t *testing.T) {
	t.Parallel()
	repo := newMemRepo()
	now := at(19, 0)
	for d := 0; d < 7; d++ {
		logDay(repo, 9, d, 1800, 150, 60, now)
	}
	p := weekProfile(now)
	p.ProteinGoal = 0

	sender := &fakeSender{}
	e := newTestEngine(repo, &fakeGen{text: "x"}, sender, now)
	if err := e.evaluateWeekStatus(context.Background(), p, now); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sender.count() != 0 {
		t.Fatalf("weekly status needs calorie and protein goals")
	}
}
