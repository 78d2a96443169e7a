package engage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-denys/meal-fit-ai/internal/domain"
)

// weekStatusHour is the only hour of day the weekly report is considered.
// Combined with the 15-minute tick this yields a few attempts within the
// hour; the date-keyed ledger keeps it to one send.
const weekStatusHour = 19

// evaluateWeekStatus fires the signup-anchored weekly report. A cycle ends
// when daysSinceSignup ≡ 6 (mod 7); missed or under-reported cycles are
// skipped for good, never queued.
func (e *Engine) evaluateWeekStatus(ctx context.Context, p *domain.UserProfile, now time.Time) error {
	if !p.WeekStatusEnabled {
		return nil
	}
	if p.CaloriesGoal <= 0 || p.ProteinGoal <= 0 {
		return nil
	}
	if now.Hour() != weekStatusHour {
		return nil
	}

	daysSinceSignup := domain.DaysBetween(p.CreatedAt, now)
	if daysSinceSignup < 6 || daysSinceSignup%7 != 6 {
		return nil
	}

	done, err := e.repo.WasNotified(ctx, p.UserID, domain.CategoryWeekStatus, now)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	from := domain.Midnight(now).AddDate(0, 0, -6)
	rows, err := e.repo.WeeklyTotals(ctx, p.UserID, from, now)
	if err != nil {
		return err
	}
	if len(rows) < domain.MinDaysWithData {
		return nil
	}

	stats := domain.ComputeWeekStats(rows, p.CaloriesGoal, p.ProteinGoal, p.FatGoal)
	status := domain.DetermineStatus(p.Goal, stats)
	index := domain.WeekIndex(stats, status)

	rec, err := e.weeklyText(ctx, WeeklyInput{
		Status:         status,
		Goal:           p.Goal,
		AvgDeficit:     stats.AvgDeficit,
		AdherencePct:   stats.AdherencePct,
		ProteinDaysMet: stats.ProteinDaysMet,
		Index:          index,
	})
	if err != nil {
		// The report still goes out with the numeric summary only.
		e.log.Debug("weekly recommendation unavailable", zap.Error(err))
		rec = ""
	}

	text := formatWeekReport(stats, status, index, rec)
	return e.deliverOnce(ctx, p.UserID, domain.CategoryWeekStatus, text, now)
}

func (e *Engine) weeklyText(ctx context.Context, in WeeklyInput) (string, error) {
	if e.gen == nil {
		return "", nil
	}
	return e.gen.WeeklyRecommendation(ctx, in)
}

// formatWeekReport renders the structured weekly summary. The AI
// recommendation is optional; the numbers always ship.
func formatWeekReport(st domain.WeekStats, status domain.WeekStatus, index int, rec string) string {
	deficit := "0"
	if st.AvgDeficit != 0 {
		deficit = fmt.Sprintf("%+.0f", st.AvgDeficit)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Weekly status: %s\n\n", status.Label())
	fmt.Fprintf(&b, "Average deficit/surplus: %s kcal\n", deficit)
	fmt.Fprintf(&b, "Protein goal met: %d of 7 days\n", st.ProteinDaysMet)
	fmt.Fprintf(&b, "Plan adherence: %.0f%%\n\n", st.AdherencePct)
	fmt.Fprintf(&b, "📈 Week index: %d%% — %s\n", index, domain.IndexLabel(index))
	if rec != "" {
		fmt.Fprintf(&b, "\n💡 Recommendation:\n%s", rec)
	}
	return b.String()
}
