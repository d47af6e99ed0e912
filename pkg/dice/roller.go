package dice

// Roll evaluates an Expression using the given Source.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	return RollResult{
		Formula:  expr.Raw,
		Dice:     rolled,
		Modifier: expr.Modifier,
	}
}

// RollFormula parses formula and rolls it using src in a single call.
func RollFormula(formula string, src Source) (RollResult, error) {
	expr, err := Parse(formula)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(expr, src), nil
}
