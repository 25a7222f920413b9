package cards

// PyramidSize is the number of cards in the Autobus pyramid.
const PyramidSize = 15

// PyramidRow describes one row of the pyramid.
// Cards are laid bottom-up: positions 0-4 form row 5 and position 14 is row 1.
type PyramidRow struct {
	Row        int
	Count      int
	StartIndex int
}

// PyramidRows lists the rows from bottom to top.
var PyramidRows = []PyramidRow{
	{Row: 5, Count: 5, StartIndex: 0},
	{Row: 4, Count: 4, StartIndex: 5},
	{Row: 3, Count: 3, StartIndex: 9},
	{Row: 2, Count: 2, StartIndex: 12},
	{Row: 1, Count: 1, StartIndex: 14},
}

// RowForIndex returns the row (1 = top, 5 = bottom) of a pyramid position.
// Positions outside the pyramid fall back to the bottom row.
func RowForIndex(index int) int {
	for _, r := range PyramidRows {
		if index >= r.StartIndex && index < r.StartIndex+r.Count {
			return r.Row
		}
	}
	return 5
}

// PositionInRow returns the 0-based offset of index within its row.
func PositionInRow(index int) int {
	row := RowForIndex(index)
	for _, r := range PyramidRows {
		if r.Row == row {
			return index - r.StartIndex
		}
	}
	return 0
}

// DrinkValue returns how many drinks a row is worth: 6 - row.
func DrinkValue(row int) int {
	return 6 - row
}

// DrinkValueForIndex returns the drink value of a pyramid position.
func DrinkValueForIndex(index int) int {
	return DrinkValue(RowForIndex(index))
}
