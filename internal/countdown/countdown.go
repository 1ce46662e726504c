// Package countdown derives the remaining-time display for assignment
// deadlines and running test attempts.
package countdown

import (
	"fmt"
	"math"
	"time"
)

// UrgentThreshold marks a deadline as urgent once less than 48h remain.
const UrgentThreshold = 48 * time.Hour

const (
	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// OverdueText is shown once the deadline has passed.
const OverdueText = "Overdue"

type State struct {
	Days                  int    `json:"days"`
	Hours                 int    `json:"hours"`
	Minutes               int    `json:"minutes"`
	Seconds               int    `json:"seconds"`
	IsOverdue             bool   `json:"isOverdue"`
	IsUrgent              bool   `json:"isUrgent"`
	TotalSecondsRemaining int64  `json:"totalSecondsRemaining"`
	FormattedTime         string `json:"formattedTime"`
}

// QuizState is the coarse view used by quiz countdowns.
type QuizState struct {
	Days      int  `json:"days"`
	Hours     int  `json:"hours"`
	Minutes   int  `json:"minutes"`
	IsExpired bool `json:"isExpired"`
}

// Compute builds the display state for the given remaining seconds.
func Compute(remaining int64) State {
	if remaining <= 0 {
		return State{IsOverdue: true, FormattedTime: OverdueText}
	}

	s := State{
		Days:                  int(remaining / secondsPerDay),
		Hours:                 int(remaining % secondsPerDay / secondsPerHour),
		Minutes:               int(remaining % secondsPerHour / secondsPerMinute),
		Seconds:               int(remaining % secondsPerMinute),
		IsUrgent:              remaining < int64(UrgentThreshold/time.Second),
		TotalSecondsRemaining: remaining,
	}
	s.FormattedTime = Format(s.Days, s.Hours, s.Minutes, s.Seconds)
	return s
}

// Format picks the two most significant units.
func Format(days, hours, minutes, seconds int) string {
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}

// Remaining returns whole seconds until deadline, rounded up so that the
// deadline itself is the first overdue instant.
func Remaining(deadline, now time.Time) int64 {
	return int64(math.Ceil(deadline.Sub(now).Seconds()))
}

// Quiz projects a State onto the quiz view.
func (s State) Quiz() QuizState {
	return QuizState{
		Days:      s.Days,
		Hours:     s.Hours,
		Minutes:   s.Minutes,
		IsExpired: s.IsOverdue,
	}
}
