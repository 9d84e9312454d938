// Package streak implements the consecutive-day win streak state machine.
//
// The policy is strict: a streak continues only when the previous win was
// exactly one calendar day earlier (UTC). A second win on the same day is a
// no-op, any gap starts a new streak, and a loss zeroes the current streak.
// The highest streak is a personal record and never decreases.
package streak

import (
	"slices"
	"time"

	"github.com/lexio-game/api/internal/lexio"
)

// Completion is one finished game in a player's history, used by Replay.
type Completion struct {
	Won  bool
	Date time.Time
}

// Apply transitions the counters for one completed game on the given
// calendar day and returns the updated counters. Events for days before
// the last recorded win are ignored: the counters already reflect newer
// days, and a late or redelivered old event must not rewind them.
func Apply(c lexio.StreakCounters, won bool, day time.Time) lexio.StreakCounters {
	day = lexio.Day(day)

	if c.LastWinDate != nil && day.Before(*c.LastWinDate) {
		return c
	}

	if !won {
		c.CurrentStreak = 0
		return c
	}

	switch {
	case c.LastWinDate == nil:
		c.CurrentStreak = 1
		c.StreakStartDate = &day
	case c.LastWinDate.Equal(day):
		// Redelivery or a second game the same day: streak unchanged.
		return c
	case c.LastWinDate.Equal(day.AddDate(0, 0, -1)):
		c.CurrentStreak++
	default:
		c.CurrentStreak = 1
		c.StreakStartDate = &day
	}

	c.HighestStreak = max(c.HighestStreak, c.CurrentStreak)
	c.LastWinDate = &day
	return c
}

// Replay rebuilds counters from a full completion history, in chronological
// order, starting from zero. The previously stored highest streak survives:
// a replay over a partial history window must not erase a personal record.
func Replay(prior lexio.StreakCounters, history []Completion) lexio.StreakCounters {
	events := make([]Completion, len(history))
	copy(events, history)
	slices.SortFunc(events, func(a, b Completion) int {
		return a.Date.Compare(b.Date)
	})

	c := lexio.StreakCounters{PlayerID: prior.PlayerID}
	for _, e := range events {
		c = Apply(c, e.Won, e.Date)
	}

	c.HighestStreak = max(c.HighestStreak, prior.HighestStreak)
	return c
}
