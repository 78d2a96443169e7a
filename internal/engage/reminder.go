package engage

import (
	"context"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// Meal reminder policy.
const (
	reminderHourFrom = 8  // no reminders before 08:00
	reminderHourTo   = 22 // and none from 22:00 on

	minShortfallCal  = 50
	minShortfallProt = 8
	minShortfallCarb = 15

	// Minimum gap between two reminders, whatever the shortfall.
	reminderMinGap = 90 * time.Minute
)

// postMealGap returns how long after a logged meal the next reminder may
// fire, scaled by the meal size.
func postMealGap(calories int) time.Duration {
	switch {
	case calories < 200:
		return 45 * time.Minute
	case calories < 450:
		return 90 * time.Minute
	default:
		return 120 * time.Minute
	}
}

// evaluateReminder decides whether a "time to eat" nudge fires this tick.
// The checks form an ordered chain; the first failing one skips the user
// silently, an unmet precondition is not an error.
func (e *Engine) evaluateReminder(ctx context.Context, p *domain.UserProfile, now time.Time) error {
	if !p.RemindersEnabled {
		return nil
	}
	if now.Hour() < reminderHourFrom || now.Hour() >= reminderHourTo {
		return nil
	}

	sent, err := e.repo.CountSentToday(ctx, p.UserID, domain.CategoryMealReminder, now)
	if err != nil {
		return err
	}
	if sent >= p.RemindersPerDay {
		return nil
	}

	last, err := e.repo.LastSentAt(ctx, p.UserID, domain.CategoryMealReminder)
	if err != nil {
		return err
	}
	if last != nil && now.Sub(*last) < reminderMinGap {
		return nil
	}

	if p.CaloriesGoal <= 0 {
		return nil
	}
	totals, err := e.repo.DailyTotals(ctx, p.UserID, now)
	if err != nil {
		return err
	}
	calRem := float64(p.CaloriesGoal - totals.Calories)
	protRem := p.ProteinGoal - totals.Protein
	carbRem := p.CarbsGoal - totals.Carbs
	if calRem < minShortfallCal && protRem < minShortfallProt && carbRem < minShortfallCarb {
		return nil
	}

	lastMeal, err := e.repo.LastMealOn(ctx, p.UserID, now)
	if err != nil {
		return err
	}
	lastMealName := ""
	lastMealMinutes := -1
	if lastMeal != nil && !lastMeal.LoggedAt.IsZero() {
		since := now.Sub(lastMeal.LoggedAt)
		if since < postMealGap(lastMeal.Calories) {
			return nil
		}
		lastMealName = lastMeal.Name
		lastMealMinutes = int(since.Minutes())
	}

	meals, err := e.repo.MealsOn(ctx, p.UserID, now)
	if err != nil {
		return err
	}
	eaten := make([]string, 0, len(meals))
	for _, m := range meals {
		if m.Name != "" {
			eaten = append(eaten, m.Name)
		}
	}

	text, err := e.reminderText(ctx, ReminderInput{
		Goal:               p.Goal,
		CaloriesGoal:       p.CaloriesGoal,
		ProteinGoal:        p.ProteinGoal,
		CarbsGoal:          p.CarbsGoal,
		Totals:             totals,
		EatenToday:         eaten,
		Hour:               now.Hour(),
		LastMealName:       lastMealName,
		LastMealMinutesAgo: lastMealMinutes,
	})
	if err != nil {
		return err
	}
	if text == "" {
		// Generator declined; not a failure, and nothing is recorded.
		return nil
	}

	return e.deliver(ctx, p.UserID, domain.CategoryMealReminder, "🔔 "+text, now)
}

func (e *Engine) reminderText(ctx context.Context, in ReminderInput) (string, error) {
	if e.gen == nil {
		return "", nil
	}
	return e.gen.ReminderSuggestion(ctx, in)
}
