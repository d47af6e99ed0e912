package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource returns queued values in order, cycling when exhausted.
type fixedSource struct {
	values []int
	idx    int
}

func (f *fixedSource) Intn(n int) int {
	v := f.values[f.idx%len(f.values)]
	f.idx++
	return v % n
}

func TestParse(t *testing.T) {
	tests := []struct {
		formula string
		want    Expression
		wantErr bool
	}{
		{formula: "2d6", want: Expression{Raw: "2d6", Count: 2, Sides: 6}},
		{formula: "d20", want: Expression{Raw: "d20", Count: 1, Sides: 20}},
		{formula: "2d6+3", want: Expression{Raw: "2d6+3", Count: 2, Sides: 6, Modifier: 3}},
		{formula: "4d8-2", want: Expression{Raw: "4d8-2", Count: 4, Sides: 8, Modifier: -2}},
		{formula: "1D12", want: Expression{Raw: "1D12", Count: 1, Sides: 12}},
		{formula: "", wantErr: true},
		{formula: "banana", wantErr: true},
		{formula: "0d6", wantErr: true},
		{formula: "2d1", wantErr: true},
		{formula: "2d", wantErr: true},
		{formula: "101d6", wantErr: true},
		{formula: "2d6+", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := Parse(tt.formula)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoll(t *testing.T) {
	src := &fixedSource{values: []int{1, 3}} // faces 2 and 4
	result, err := RollFormula("2d6+3", src)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4}, result.Dice)
	assert.Equal(t, 3, result.Modifier)
	assert.Equal(t, 9, result.Total())
	assert.Equal(t, "2d6+3 → [2 4] +3 = 9", result.Breakdown())
}

func TestRollNoModifierBreakdown(t *testing.T) {
	src := &fixedSource{values: []int{5}}
	result, err := RollFormula("d20", src)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Total())
	assert.Equal(t, "d20 → [6] = 6", result.Breakdown())
}

func TestCryptoSourceRange(t *testing.T) {
	src := NewCryptoSource()
	for i := 0; i < 100; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}
