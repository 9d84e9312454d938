// Package scoring computes game scores and defines the canonical ranking
// order for standings. Everything here is pure and deterministic.
package scoring

import (
	"cmp"
	"slices"

	"github.com/lexio-game/api/internal/lexio"
)

const (
	// BaseScore is the score before penalties for a winning game.
	BaseScore = 1000

	guessPenaltyStep = 100
	timePenaltyStep  = 10
	hintPenalty      = 200
)

// Result is the score breakdown for a single completed game.
type Result struct {
	BaseScore    int `json:"baseScore"`
	GuessPenalty int `json:"guessPenalty"`
	TimePenalty  int `json:"timePenalty"`
	HintPenalty  int `json:"hintPenalty"`
	Score        int `json:"score"`
}

// Score computes the score for a completed game. Losses score zero with no
// penalty breakdown. Inputs are pre-validated by the caller.
func Score(guessesUsed, completionTimeSeconds int, usedHint, won bool) Result {
	if !won {
		return Result{}
	}

	r := Result{
		BaseScore:    BaseScore,
		GuessPenalty: (guessesUsed - 1) * guessPenaltyStep,
		TimePenalty:  completionTimeSeconds / timePenaltyStep * timePenaltyStep,
	}
	if usedHint {
		r.HintPenalty = hintPenalty
	}
	r.Score = max(0, BaseScore-r.GuessPenalty-r.TimePenalty-r.HintPenalty)
	return r
}

// Compare orders two standings under the canonical ranking rule:
// fewer guesses first, then faster time, then higher fuzzy bonus.
// Returns a negative value when a ranks ahead of b.
func Compare(a, b lexio.Standing) int {
	if c := cmp.Compare(a.BestGuesses, b.BestGuesses); c != 0 {
		return c
	}
	if c := cmp.Compare(a.BestTimeSeconds, b.BestTimeSeconds); c != 0 {
		return c
	}
	return cmp.Compare(b.FuzzyBonus, a.FuzzyBonus)
}

// Better reports whether a is strictly better than b under the ranking
// order. Ties are not "better": an equal result must not overwrite a stored
// standing (avoids churn on redelivery).
func Better(a, b lexio.Standing) bool {
	return Compare(a, b) < 0
}

// Rank sorts standings into canonical order and assigns dense ranks 1..N
// with the top-10 flag. Equal results get a deterministic order by player ID
// so concurrent recomputes converge on the same assignment.
func Rank(standings []lexio.Standing) []lexio.Standing {
	ranked := make([]lexio.Standing, len(standings))
	copy(ranked, standings)

	slices.SortFunc(ranked, func(a, b lexio.Standing) int {
		if c := Compare(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	for i := range ranked {
		pos := i + 1
		ranked[i].Rank = &pos
		ranked[i].WasTop10 = pos <= 10
	}
	return ranked
}
