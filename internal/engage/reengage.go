package engage

import (
	"context"
	"fmt"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// Re-engagement tiers. Past the escalation threshold only the 5-day tier is
// considered; a cooldown-blocked escalation does not fall back to the soft
// nudge.
const (
	reengageSoftHours     = 48
	reengageEscalateHours = 96
	reengageSoftCooldown  = 48 * time.Hour
	reengageEscalateDays  = 5
)

// evaluateReengage fires inactivity nudges. Inactivity counts from the
// later of last activity and signup, so fresh users are not nudged for the
// blank history before they joined.
func (e *Engine) evaluateReengage(ctx context.Context, p *domain.UserProfile, now time.Time) error {
	if !p.ReengageEnabled {
		return nil
	}

	hoursInactive := int(now.Sub(p.ActivityBase()).Hours())
	switch {
	case hoursInactive >= reengageEscalateHours:
		last, err := e.repo.LastSentAt(ctx, p.UserID, domain.CategoryReengage5d)
		if err != nil {
			return err
		}
		if last != nil && domain.DaysBetween(*last, now) < reengageEscalateDays {
			return nil
		}
		text, err := e.reengageText(ctx, ReengageInput{
			Tier:          domain.CategoryReengage5d,
			Name:          p.Name,
			HoursInactive: hoursInactive,
		})
		if err != nil {
			return err
		}
		return e.deliver(ctx, p.UserID, domain.CategoryReengage5d, text, now)

	case hoursInactive >= reengageSoftHours:
		last, err := e.repo.LastSentAt(ctx, p.UserID, domain.CategoryReengage48h)
		if err != nil {
			return err
		}
		if last != nil && now.Sub(*last) < reengageSoftCooldown {
			return nil
		}
		text, err := e.reengageText(ctx, ReengageInput{
			Tier:          domain.CategoryReengage48h,
			Name:          p.Name,
			HoursInactive: hoursInactive,
		})
		if err != nil {
			return err
		}
		return e.deliver(ctx, p.UserID, domain.CategoryReengage48h, text, now)
	}
	return nil
}

// reengageText asks the generator for a nudge and falls back to a built-in
// line, so inactivity nudges work even without AI content.
func (e *Engine) reengageText(ctx context.Context, in ReengageInput) (string, error) {
	if e.gen != nil {
		text, err := e.gen.ReengageMessage(ctx, in)
		if err != nil {
			return "", err
		}
		if text != "" {
			return "👋 " + text, nil
		}
	}
	if in.Tier == domain.CategoryReengage5d {
		return fmt.Sprintf("👋 It's been %d days since your last log. One meal is enough to get back on track — log whatever you eat next.", in.HoursInactive/24), nil
	}
	return "👋 Haven't seen a log in a couple of days. Add your next meal and keep the picture complete.", nil
}
