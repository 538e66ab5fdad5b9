package board

import (
	"errors"

	"github.com/jdrlotr/fourline/go/internal/models"
)

// Grid dimensions. Fixed for four-in-a-row.
const (
	Rows = 6
	Cols = 7

	winLength = 4
)

var (
	// ErrColumnFull is returned when a move targets a column with no empty row.
	ErrColumnFull = errors.New("column full")
	// ErrColumnOutOfRange is returned when a move targets a column outside [0, Cols).
	ErrColumnOutOfRange = errors.New("column out of range")
)

// Outcome classifies a board after a move.
type Outcome int

const (
	OutcomeOngoing Outcome = iota
	OutcomeWin
	OutcomeDraw
)

// New returns an empty Rows x Cols board.
func New() models.Board {
	b := make(models.Board, Rows)
	for r := range b {
		b[r] = make([]models.Cell, Cols)
	}
	return b
}

// Clone returns a deep copy of b. Snapshots and events carry clones so
// broadcast payloads never alias the live board.
func Clone(b models.Board) models.Board {
	out := make(models.Board, len(b))
	for r := range b {
		out[r] = make([]models.Cell, len(b[r]))
		copy(out[r], b[r])
	}
	return out
}

// Apply drops a piece for player into column, occupying the lowest empty
// row. The board is mutated in place; the landing row is returned.
func Apply(b models.Board, column int, player models.Cell) (int, error) {
	if column < 0 || column >= Cols {
		return 0, ErrColumnOutOfRange
	}
	for r := Rows - 1; r >= 0; r-- {
		if b[r][column] == models.CellEmpty {
			b[r][column] = player
			return r, nil
		}
	}
	return 0, ErrColumnFull
}

// lineDirections are the four axes through a cell: horizontal, vertical,
// and both diagonals. Each is scanned in both signs from the last move.
var lineDirections = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// Detect classifies the board given the row/column of the last placed
// piece. Only the four lines through that cell are scanned, so the check
// is constant-time regardless of board size. A full board with no win is
// a draw.
func Detect(b models.Board, row, col int) (Outcome, models.Cell) {
	player := b[row][col]
	if player == models.CellEmpty {
		return OutcomeOngoing, models.CellEmpty
	}

	for _, dir := range lineDirections {
		count := 1
		for _, sign := range [2]int{1, -1} {
			r, c := row+dir[0]*sign, col+dir[1]*sign
			for r >= 0 && r < Rows && c >= 0 && c < Cols && b[r][c] == player {
				count++
				r += dir[0] * sign
				c += dir[1] * sign
			}
		}
		if count >= winLength {
			return OutcomeWin, player
		}
	}

	if full(b) {
		return OutcomeDraw, models.CellEmpty
	}
	return OutcomeOngoing, models.CellEmpty
}

func full(b models.Board) bool {
	for c := 0; c < Cols; c++ {
		if b[0][c] == models.CellEmpty {
			return false
		}
	}
	return true
}
