package domain

// Weekly status thresholds. The cycle is always scored against 7 days even
// when fewer days have data.
const (
	WeekDays = 7

	// Minimum days with logged data for a cycle to be reportable.
	MinDaysWithData = 3

	deficitBalanceMin  = 200
	deficitBalanceMax  = 500
	deficitAggressive  = 700
	proteinDaysBalance = 5
	overloadDaysOver   = 3
	overloadCalOverPct = 0.15
	overloadFatDays    = 4
	under70Days        = 3
)

// WeekStatus is the adherence classification for one signup-anchored cycle.
type WeekStatus string

const (
	StatusBalance           WeekStatus = "balance"
	StatusOverload          WeekStatus = "overload"
	StatusAggressiveDeficit WeekStatus = "aggressive_deficit"
)

// Label returns a short human-readable name for the status.
func (s WeekStatus) Label() string {
	switch s {
	case StatusOverload:
		return "Overload 🟡"
	case StatusAggressiveDeficit:
		return "Deficit too steep 🔴"
	default:
		return "Balanced 🟢"
	}
}

// WeekStats aggregates one 7-day cycle against the user's goals.
type WeekStats struct {
	AvgDeficit     float64 // caloriesGoal - mean daily calories; positive = under target
	AdherencePct   float64 // totalCalories / (7 * caloriesGoal) * 100
	ProteinDaysMet int
	DaysWithData   int
	DaysSurplus    int // days strictly over the calorie goal
	DaysCalOver15  int // days over goal by more than 15%
	DaysFatOver    int // days over the fat goal
	DaysUnder70    int // days under 70% of the calorie goal
}

// ComputeWeekStats folds per-day totals into cycle statistics. Days missing
// from rows simply do not count toward any day counter, but averages are
// always over the full 7-day cycle.
func ComputeWeekStats(rows []DayTotals, calGoal int, protGoal, fatGoal float64) WeekStats {
	var st WeekStats
	st.DaysWithData = len(rows)

	var totalCal int
	for _, r := range rows {
		totalCal += r.Calories
		if calGoal > 0 && r.Calories > calGoal {
			st.DaysSurplus++
		}
		if calGoal > 0 && float64(r.Calories) > float64(calGoal)*(1+overloadCalOverPct) {
			st.DaysCalOver15++
		}
		if calGoal > 0 && float64(r.Calories) < float64(calGoal)*0.70 {
			st.DaysUnder70++
		}
		if fatGoal > 0 && r.Fat > fatGoal {
			st.DaysFatOver++
		}
		if protGoal > 0 && r.Protein >= protGoal {
			st.ProteinDaysMet++
		}
	}

	avgCal := float64(totalCal) / WeekDays
	if calGoal > 0 {
		st.AvgDeficit = float64(calGoal) - avgCal
		st.AdherencePct = float64(totalCal) / (WeekDays * float64(calGoal)) * 100
	}
	return st
}

// DetermineStatus classifies a cycle. The decision table depends on the
// user's goal; the first matching row wins.
func DetermineStatus(goal string, st WeekStats) WeekStatus {
	switch goal {
	case GoalGain:
		if st.DaysSurplus >= overloadDaysOver || st.AdherencePct > 100*(1+overloadCalOverPct) {
			return StatusOverload
		}
		if st.AvgDeficit > deficitAggressive || st.DaysUnder70 >= under70Days {
			return StatusAggressiveDeficit
		}
		return StatusBalance

	case GoalMaintain, GoalRecomp:
		if st.DaysSurplus >= overloadDaysOver || st.DaysFatOver >= overloadFatDays {
			return StatusOverload
		}
		return StatusBalance

	default: // loss, cutting and anything unknown score as a deficit goal
		if st.DaysSurplus >= overloadDaysOver || st.DaysCalOver15 >= overloadDaysOver || st.DaysFatOver >= overloadFatDays {
			return StatusOverload
		}
		if st.AvgDeficit > deficitAggressive || st.DaysUnder70 >= under70Days {
			return StatusAggressiveDeficit
		}
		if st.AvgDeficit >= deficitBalanceMin && st.AvgDeficit <= deficitBalanceMax &&
			st.ProteinDaysMet >= proteinDaysBalance && st.DaysCalOver15 == 0 {
			return StatusBalance
		}
		if st.AvgDeficit < 0 {
			return StatusOverload
		}
		return StatusBalance
	}
}

// WeekIndex scores a cycle 0..100.
func WeekIndex(st WeekStats, status WeekStatus) int {
	adh := st.AdherencePct
	if adh < 0 {
		adh = 0
	}
	if adh > 100 {
		adh = 100
	}
	protScore := float64(st.ProteinDaysMet) / WeekDays * 100

	switch status {
	case StatusBalance:
		return int(adh*0.5 + protScore*0.5)
	case StatusOverload:
		idx := 70 - (st.DaysSurplus*10 + st.DaysFatOver*5)
		if idx < 0 {
			idx = 0
		}
		return idx
	default:
		idx := int(adh+protScore) / 2
		if idx < 0 {
			idx = 0
		}
		if idx > 100 {
			idx = 100
		}
		return idx
	}
}

// IndexLabel maps an index score to its report caption.
func IndexLabel(idx int) string {
	switch {
	case idx >= 80:
		return "Great week"
	case idx >= 60:
		return "Room to grow"
	case idx >= 40:
		return "Unstable routine"
	default:
		return "Time to adjust the plan"
	}
}
