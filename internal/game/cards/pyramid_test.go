package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDrinkValueForIndex(t *testing.T) {
	want := []int{1, 1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 4, 4, 5}
	for i, v := range want {
		assert.Equal(t, v, DrinkValueForIndex(i), "position %d", i)
	}
}

func TestRowForIndexBounds(t *testing.T) {
	assert.Equal(t, 5, RowForIndex(0))
	assert.Equal(t, 1, RowForIndex(14))
	assert.Equal(t, 5, RowForIndex(15))
	assert.Equal(t, 5, RowForIndex(-1))
}

func TestPositionInRow(t *testing.T) {
	assert.Equal(t, 0, PositionInRow(0))
	assert.Equal(t, 4, PositionInRow(4))
	assert.Equal(t, 0, PositionInRow(5))
	assert.Equal(t, 2, PositionInRow(11))
	assert.Equal(t, 1, PositionInRow(13))
	assert.Equal(t, 0, PositionInRow(14))
}

// TestDrinkValueMonotonicProperty checks the drink value stays in 1..5 and
// never decreases as the position climbs the pyramid.
func TestDrinkValueMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.IntRange(0, PyramidSize-1).Draw(t, "i")
		j := rapid.IntRange(i, PyramidSize-1).Draw(t, "j")

		vi, vj := DrinkValueForIndex(i), DrinkValueForIndex(j)
		if vi < 1 || vi > 5 {
			t.Fatalf("DrinkValueForIndex(%d) = %d out of range", i, vi)
		}
		if vj < vi {
			t.Fatalf("DrinkValueForIndex(%d) = %d < DrinkValueForIndex(%d) = %d", j, vj, i, vi)
		}
	})
}

func TestPyramidRowsCoverFifteenPositions(t *testing.T) {
	total := 0
	for _, r := range PyramidRows {
		assert.Equal(t, total, r.StartIndex)
		total += r.Count
	}
	assert.Equal(t, PyramidSize, total)
}
