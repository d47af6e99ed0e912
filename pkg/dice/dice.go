// Package dice parses and evaluates dice formulas like "2d6+3".
package dice

import "fmt"

// RollResult holds the full audit trail for a single roll.
type RollResult struct {
	Formula  string // original formula string, e.g. "2d6+3"
	Dice     []int  // individual die results before modifier
	Modifier int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// Breakdown returns a human-readable audit string in the format
// "2d6+3 → [4 5] +3 = 12".
func (r RollResult) Breakdown() string {
	diceStr := fmt.Sprintf("%v", r.Dice)
	if r.Modifier == 0 {
		return fmt.Sprintf("%s → %s = %d", r.Formula, diceStr, r.Total())
	}
	return fmt.Sprintf("%s → %s %+d = %d", r.Formula, diceStr, r.Modifier, r.Total())
}

// Source is the randomness provider for dice rolls. Implementations must
// be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n). n must be > 0.
	Intn(n int) int
}
