package domain

// Category identifies a notification kind in the dedup ledger. Date-keyed
// categories go through the notification log (at most once per calendar
// date); the rest use the timestamped send log and interval cooldowns.
type Category string

const (
	CategoryMealReminder Category = "meal_reminder"

	CategoryGoalProtein  Category = "goal_protein"
	CategoryGoalCalories Category = "goal_calories"
	CategoryGoalFull     Category = "goal_full"

	CategoryStreakProteinShort Category = "streak_protein_short"
	CategoryStreakFatOver      Category = "streak_fat_over"
	CategoryStreakCalOver      Category = "streak_cal_over"

	CategoryReengage48h Category = "reengage_48h"
	CategoryReengage5d  Category = "reengage_5d"

	CategoryWeekStatus Category = "week_status"
)
