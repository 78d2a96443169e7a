// Package content generates message bodies through the Gemini API. Every
// method returns ("", nil) when the model declines or produces nothing —
// the scheduler treats that as a legitimate "no suggestion", not an error.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/your-denys/meal-fit-ai/internal/domain"
	"github.com/your-denys/meal-fit-ai/internal/engage"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

// Option tweaks Client construction.
type Option func(*Client)

// WithEndpoint overrides the API base URL, used by tests.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(url, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a Gemini content client. model defaults to
// gemini-2.5-flash when empty.
func NewClient(apiKey, model string, opts ...Option) *Client {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	c := &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type genPart struct {
	Text string `json:"text"`
}

type genContent struct {
	Parts []genPart `json:"parts"`
}

type generateRequest struct {
	Contents []genContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content genContent `json:"content"`
	} `json:"candidates"`
}

// generate runs one prompt and returns the first candidate's text, trimmed.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Contents: []genContent{{Parts: []genPart{{Text: prompt}}}},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}

func goalLabel(goal string) string {
	switch goal {
	case domain.GoalLoss:
		return "weight loss"
	case domain.GoalGain:
		return "muscle gain"
	case domain.GoalMaintain:
		return "maintenance"
	case domain.GoalRecomp:
		return "body recomposition"
	case domain.GoalCutting:
		return "cutting"
	case "":
		return "general health"
	default:
		return goal
	}
}

// ReminderSuggestion builds a short "time to eat" nudge from the day's
// shortfall, the full day's menu and the last-meal context.
func (c *Client) ReminderSuggestion(ctx context.Context, in engage.ReminderInput) (string, error) {
	calRem := float64(in.CaloriesGoal - in.Totals.Calories)
	protRem := in.ProteinGoal - in.Totals.Protein
	carbRem := in.CarbsGoal - in.Totals.Carbs

	// Too close to the goals for a nudge to make sense.
	if calRem < 30 && protRem < 5 && carbRem < 10 {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a nutrition coach. Write a short \"time to eat\" reminder.\n\n")
	fmt.Fprintf(&b, "User goal: %s.\n", goalLabel(in.Goal))
	fmt.Fprintf(&b, "Daily targets: %d kcal, protein %.0f g, carbs %.0f g.\n", in.CaloriesGoal, in.ProteinGoal, in.CarbsGoal)
	fmt.Fprintf(&b, "Eaten today: %d kcal, P %.0f g, C %.0f g.\n", in.Totals.Calories, in.Totals.Protein, in.Totals.Carbs)
	fmt.Fprintf(&b, "Remaining: %.0f kcal, protein %.0f g, carbs %.0f g.\n", calRem, protRem, carbRem)
	if len(in.EatenToday) > 0 {
		n := len(in.EatenToday)
		if n > 20 {
			n = 20
		}
		fmt.Fprintf(&b, "Today's menu so far (do not repeat these or similar dishes): %s.\n", strings.Join(in.EatenToday[:n], ", "))
	}
	if in.LastMealMinutesAgo >= 0 && in.LastMealName != "" {
		fmt.Fprintf(&b, "Last meal was %d minutes ago (%q); you may mention enough time has passed.\n", in.LastMealMinutesAgo, in.LastMealName)
	}
	fmt.Fprintf(&b, "\nCurrent hour: %d:00.\n", in.Hour)
	fmt.Fprintf(&b, "Answer in 2-4 sentences: 1) suggest a concrete portion and food, 2) say which macro it closes. No greetings.")

	return c.generate(ctx, b.String())
}

// AchievementMessage congratulates on a reached daily target.
func (c *Client) AchievementMessage(ctx context.Context, in engage.AchievementInput) (string, error) {
	what := "the daily calorie target"
	switch in.Category {
	case domain.CategoryGoalProtein:
		what = "the daily protein target"
	case domain.CategoryGoalFull:
		what = "every daily macro target at once"
	}
	prompt := fmt.Sprintf(
		"You are a nutrition coach. The user (goal: %s) just reached %s. "+
			"Today: %d kcal, P %.0f g, F %.0f g, C %.0f g. "+
			"Write one or two warm congratulatory sentences. No greetings, no emoji.",
		goalLabel(in.Goal), what,
		in.Totals.Calories, in.Totals.Protein, in.Totals.Fat, in.Totals.Carbs,
	)
	return c.generate(ctx, prompt)
}

// StreakAdvice coaches on a sustained adherence problem.
func (c *Client) StreakAdvice(ctx context.Context, in engage.StreakInput) (string, error) {
	pattern := "calorie intake has been more than 10% over target"
	switch in.Category {
	case domain.CategoryStreakProteinShort:
		pattern = "protein intake has stayed below 85% of target"
	case domain.CategoryStreakFatOver:
		pattern = "fat intake has been more than 10% over target"
	}
	prompt := fmt.Sprintf(
		"You are a nutrition coach. For %d days in a row the user's %s (goal: %s). "+
			"Write 2-3 supportive sentences with one concrete, actionable adjustment. "+
			"No blame, no greetings.",
		in.Days, pattern, goalLabel(in.Goal),
	)
	return c.generate(ctx, prompt)
}

// ReengageMessage writes an inactivity nudge.
func (c *Client) ReengageMessage(ctx context.Context, in engage.ReengageInput) (string, error) {
	tone := "a soft, friendly nudge"
	if in.Tier == domain.CategoryReengage5d {
		tone = "a slightly more direct check-in"
	}
	name := in.Name
	if name == "" {
		name = "the user"
	}
	prompt := fmt.Sprintf(
		"You are a nutrition tracking assistant. %s has not logged food for about %d hours. "+
			"Write %s (1-2 sentences) inviting them to log their next meal. No guilt-tripping.",
		name, in.HoursInactive, tone,
	)
	return c.generate(ctx, prompt)
}

// WeeklyRecommendation writes the short advice block of the weekly report.
func (c *Client) WeeklyRecommendation(ctx context.Context, in engage.WeeklyInput) (string, error) {
	prompt := fmt.Sprintf(
		"You are a nutrition coach. Weekly review for a user with goal %s: "+
			"status %s, average daily deficit %.0f kcal, calorie adherence %.0f%%, "+
			"protein goal met on %d of 7 days, week index %d/100. "+
			"Write 2-3 sentences of specific advice for next week. No greetings.",
		goalLabel(in.Goal), in.Status, in.AvgDeficit, in.AdherencePct, in.ProteinDaysMet, in.Index,
	)
	return c.generate(ctx, prompt)
}
