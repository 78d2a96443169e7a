package engage

import (
	"context"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// Adherence streak policy: a pattern must hold every day of the trailing
// window, and each streak key stays quiet for streakCooldownDays after it
// fires.
const (
	streakWindowDays   = 5
	streakCooldownDays = 5
	streakEvalHour     = 19 // evaluated in the evening, once the day's intake is mostly in
)

// streakWindow builds per-day totals for the trailing window ending today,
// zero-filling days without any logged meal (an empty day is a shortfall
// day, not a missing one).
func (e *Engine) streakWindow(ctx context.Context, userID int64, now time.Time) ([]domain.DailyTotals, error) {
	from := domain.Midnight(now).AddDate(0, 0, -(streakWindowDays - 1))
	rows, err := e.repo.WeeklyTotals(ctx, userID, from, now)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]domain.DayTotals, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}

	days := make([]domain.DailyTotals, streakWindowDays)
	for i := 0; i < streakWindowDays; i++ {
		key := domain.DateKey(from.AddDate(0, 0, i))
		if r, ok := byDate[key]; ok {
			days[i] = domain.DailyTotals{Calories: r.Calories, Protein: r.Protein, Fat: r.Fat, Carbs: r.Carbs}
		}
	}
	return days, nil
}

// evaluateStreaks sends at most one coaching message per tick, picking the
// first satisfied, not-recently-sent pattern in fixed priority order:
// protein shortfall, then fat excess, then calorie excess.
func (e *Engine) evaluateStreaks(ctx context.Context, p *domain.UserProfile, now time.Time) error {
	if !p.ProgressEnabled {
		return nil
	}
	if now.Hour() < streakEvalHour {
		return nil
	}

	days, err := e.streakWindow(ctx, p.UserID, now)
	if err != nil {
		return err
	}

	allDays := func(pred func(domain.DailyTotals) bool) bool {
		for _, d := range days {
			if !pred(d) {
				return false
			}
		}
		return true
	}

	streaks := []struct {
		cat  domain.Category
		held bool
	}{
		{domain.CategoryStreakProteinShort, p.ProteinGoal > 0 && allDays(func(d domain.DailyTotals) bool {
			return d.Protein < 0.85*p.ProteinGoal
		})},
		{domain.CategoryStreakFatOver, p.FatGoal > 0 && allDays(func(d domain.DailyTotals) bool {
			return d.Fat > 1.10*p.FatGoal
		})},
		{domain.CategoryStreakCalOver, p.CaloriesGoal > 0 && allDays(func(d domain.DailyTotals) bool {
			return float64(d.Calories) > 1.10*float64(p.CaloriesGoal)
		})},
	}

	for _, s := range streaks {
		if !s.held {
			continue
		}
		last, err := e.repo.LastSentAt(ctx, p.UserID, s.cat)
		if err != nil {
			return err
		}
		if last != nil && domain.DaysBetween(*last, now) < streakCooldownDays {
			continue
		}

		text, err := e.streakText(ctx, StreakInput{Category: s.cat, Goal: p.Goal, Days: streakWindowDays})
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		// One message per tick, even when several streaks hold.
		return e.deliver(ctx, p.UserID, s.cat, "📈 "+text, now)
	}
	return nil
}

func (e *Engine) streakText(ctx context.Context, in StreakInput) (string, error) {
	if e.gen == nil {
		return "", nil
	}
	return e.gen.StreakAdvice(ctx, in)
}
