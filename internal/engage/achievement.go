package engage

import (
	"context"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// evaluateAchievements fires the once-per-day congratulations when a daily
// macro target is reached. The three categories are independent: protein
// alone, calories alone, and all four macros at once.
func (e *Engine) evaluateAchievements(ctx context.Context, p *domain.UserProfile, now time.Time) error {
	if !p.ProgressEnabled {
		return nil
	}

	totals, err := e.repo.DailyTotals(ctx, p.UserID, now)
	if err != nil {
		return err
	}

	checks := []struct {
		cat domain.Category
		hit bool
	}{
		{domain.CategoryGoalProtein, p.ProteinGoal > 0 && totals.Protein >= p.ProteinGoal},
		{domain.CategoryGoalCalories, p.CaloriesGoal > 0 && totals.Calories >= p.CaloriesGoal},
		{domain.CategoryGoalFull, p.HasFullGoals() &&
			totals.Calories >= p.CaloriesGoal &&
			totals.Protein >= p.ProteinGoal &&
			totals.Fat >= p.FatGoal &&
			totals.Carbs >= p.CarbsGoal},
	}

	for _, c := range checks {
		if !c.hit {
			continue
		}
		done, err := e.repo.WasNotified(ctx, p.UserID, c.cat, now)
		if err != nil {
			return err
		}
		if done {
			continue
		}

		text, err := e.achievementText(ctx, AchievementInput{
			Category: c.cat,
			Goal:     p.Goal,
			Totals:   totals,
		})
		if err != nil {
			return err
		}
		if text == "" {
			// No content, no ledger row. Re-evaluation later today may retry.
			continue
		}
		if err := e.deliverOnce(ctx, p.UserID, c.cat, "🎉 "+text, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) achievementText(ctx context.Context, in AchievementInput) (string, error) {
	if e.gen == nil {
		return "", nil
	}
	return e.gen.AchievementMessage(ctx, in)
}
