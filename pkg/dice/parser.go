package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed dice formula ready to be rolled.
type Expression struct {
	Raw      string
	Count    int // number of dice, >= 1
	Sides    int // faces per die, >= 2
	Modifier int // flat modifier (may be negative)
}

// Parse parses a formula into an Expression. Supported forms: "d20",
// "2d6", "2d6+3", "4d8-2".
func Parse(formula string) (Expression, error) {
	if formula == "" {
		return Expression{}, fmt.Errorf("dice: empty formula")
	}

	raw := formula
	s := strings.ToLower(strings.TrimSpace(formula))

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Expression{}, fmt.Errorf("dice: missing 'd' in formula %q", raw)
	}

	// Count before 'd'; defaults to 1 when omitted.
	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}
	if count > 100 {
		return Expression{}, fmt.Errorf("dice: die count %d in %q exceeds limit of 100", count, raw)
	}

	rest := s[dIdx+1:]

	// Split sides from an optional trailing modifier.
	modOffset := -1
	for i := 1; i < len(rest); i++ {
		if rest[i] == '+' || rest[i] == '-' {
			modOffset = i
			break
		}
	}

	sidesStr := rest
	modifier := 0
	if modOffset >= 0 {
		sidesStr = rest[:modOffset]
		var err error
		modifier, err = strconv.Atoi(rest[modOffset:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: sides must be >= 2 in %q", raw)
	}

	return Expression{
		Raw:      raw,
		Count:    count,
		Sides:    sides,
		Modifier: modifier,
	}, nil
}
