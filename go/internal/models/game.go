package models

// GameState defines the lifecycle phase of a match.
type GameState string

const (
	GameStateWaiting      GameState = "waiting"
	GameStateCountingDown GameState = "countingDown"
	GameStatePlaying      GameState = "playing"
	GameStateFinished     GameState = "finished"
)

// Cell is one slot of the grid. Serialized as 0/1/2 so clients can
// render the board without a lookup table.
type Cell int

const (
	CellEmpty Cell = iota
	CellPlayer1
	CellPlayer2
)

// Board is the 6x7 grid, row 0 at the top. Gravity pulls pieces toward
// the highest row index of a column.
type Board [][]Cell

// TossResult is the outcome of the first-mover coin toss.
type TossResult string

const (
	TossHeads TossResult = "heads"
	TossTails TossResult = "tails"
)

// CoinToss records the single tie-break decision for a match.
type CoinToss struct {
	Resolved  bool       `json:"resolved"`
	Result    TossResult `json:"result,omitempty"`
	DecidedBy string     `json:"decidedBy,omitempty"`
}

// Snapshot is the full client-renderable state of a match. Every field a
// client needs is present so subscribers never have to merge deltas.
type Snapshot struct {
	GameID      string    `json:"gameId"`
	State       GameState `json:"state"`
	Players     []string  `json:"players"`
	Board       Board     `json:"board"`
	CurrentTurn string    `json:"currentTurn,omitempty"`
	Countdown   int       `json:"countdown,omitempty"`
	CoinToss    CoinToss  `json:"coinToss"`
	Winner      *string   `json:"winner"`
}
