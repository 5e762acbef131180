// Package milestone detects threshold crossings in the point total and
// streak length, and classifies the user's reward tier.
package milestone

// PointThresholds are the fixed OPC totals that trigger a celebration.
var PointThresholds = []int64{100, 500, 1000}

// StreakThresholds are the fixed streak lengths that trigger a celebration.
var StreakThresholds = []int{3, 7, 14}

// Crossed reports whether any threshold t satisfies prev < t <= new on
// either dimension. A value sitting exactly on a threshold without
// movement does not cross it.
func Crossed(prevTotal, newTotal int64, prevStreak, newStreak int) bool {
	for _, t := range PointThresholds {
		if prevTotal < t && t <= newTotal {
			return true
		}
	}
	for _, t := range StreakThresholds {
		if prevStreak < t && t <= newStreak {
			return true
		}
	}
	return false
}

// Tier maps a point total and streak to a reward tier label.
func Tier(total int64, streak int) string {
	switch {
	case total >= 1000 && streak >= 14:
		return "Wealthweight"
	case streak >= 7:
		return "Discipline Dealer"
	case total >= 500:
		return "Cashflow Contender"
	case total >= 100:
		return "Budget Rookie"
	default:
		return "Beginner"
	}
}

// StreakMessage returns the motivational line shown for a streak length.
func StreakMessage(streak int) string {
	switch {
	case streak >= 14:
		return "Incredible discipline! You're a Wealthweight champion!"
	case streak >= 7:
		return "Amazing! You've reached Discipline Dealer status!"
	case streak >= 3:
		return "You're on fire! Keep it up!"
	case streak == 1:
		return "Great start! Build your streak by staying under budget daily."
	default:
		return "Start your streak by staying under budget today!"
	}
}
