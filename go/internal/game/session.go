package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jdrlotr/fourline/go/internal/board"
	"github.com/jdrlotr/fourline/go/internal/game/events"
	"github.com/jdrlotr/fourline/go/internal/models"
)

// Broadcaster defines what a session needs to fan events out to its
// subscribers. Delivery is best-effort; a failed delivery never rolls
// back the transition that produced the event.
type Broadcaster interface {
	Publish(gameID uuid.UUID, event *events.Event)
}

// OutcomeRecorder defines what a session needs from the match directory
// at the finished transition.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, gameID uuid.UUID, winner *uuid.UUID, finalBoard models.Board) error
}

// SessionParams bundles the dependencies for a new session.
type SessionParams struct {
	ID               uuid.UUID
	Owner            uuid.UUID
	Clock            clockwork.Clock
	Broadcaster      Broadcaster
	Recorder         OutcomeRecorder
	Turns            *TurnCoordinator
	CountdownSeconds int
}

// Session is the per-match state machine. All intents for one session
// are serialized behind mu, so two near-simultaneous moves or two racing
// tie-break triggers always resolve deterministically. State transitions
// are monotonic: waiting -> countingDown -> playing -> finished.
type Session struct {
	id          uuid.UUID
	clock       clockwork.Clock
	broadcaster Broadcaster
	recorder    OutcomeRecorder
	turns       *TurnCoordinator
	countdownIn int

	mu          sync.Mutex
	state       models.GameState
	players     []uuid.UUID
	board       models.Board
	currentTurn uuid.UUID
	toss        models.CoinToss
	winner      *uuid.UUID
	countdown   int
	tickTimer   clockwork.Timer
	finishedAt  time.Time
}

// NewSession creates a session in the waiting state with the creator as
// players[0]. Join is implicit for the creator.
func NewSession(p SessionParams) *Session {
	turns := p.Turns
	if turns == nil {
		turns = NewTurnCoordinator()
	}
	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if p.CountdownSeconds <= 0 {
		p.CountdownSeconds = 3
	}
	return &Session{
		id:          p.ID,
		clock:       clk,
		broadcaster: p.Broadcaster,
		recorder:    p.Recorder,
		turns:       turns,
		countdownIn: p.CountdownSeconds,
		state:       models.GameStateWaiting,
		players:     []uuid.UUID{p.Owner},
		board:       board.New(),
	}
}

// ID returns the immutable match identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Join admits a participant. The second distinct player starts the
// countdown; a join by an existing player (reconnect, second tab) is a
// no-op; a third identity is refused.
func (s *Session) Join(userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.GameStateFinished {
		return ErrSessionFinished
	}
	if s.isPlayer(userID) {
		return nil
	}
	if s.state != models.GameStateWaiting || len(s.players) >= 2 {
		return ErrSessionFull
	}

	s.players = append(s.players, userID)
	s.state = models.GameStateCountingDown
	s.countdown = s.countdownIn

	log.Info().
		Str("game_id", s.id.String()).
		Str("user_id", userID.String()).
		Int("countdown", s.countdown).
		Msg("second player joined, countdown started")

	s.publish(events.TypeCountdown, events.CountdownPayload{
		GameID:           s.id.String(),
		SecondsRemaining: s.countdown,
	})
	s.tickTimer = s.clock.AfterFunc(time.Second, s.tick)
	return nil
}

// tick drives the countdown. It re-enters the serializer and checks the
// current state first: a session destroyed or force-ended before the
// timer fired makes the callback a no-op.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.GameStateCountingDown {
		return
	}

	s.countdown--
	if s.countdown > 0 {
		s.publish(events.TypeCountdown, events.CountdownPayload{
			GameID:           s.id.String(),
			SecondsRemaining: s.countdown,
		})
		s.tickTimer = s.clock.AfterFunc(time.Second, s.tick)
		return
	}

	s.countdown = 0
	s.tickTimer = nil
	s.toss, s.currentTurn = s.turns.Resolve(s.toss, s.players)
	s.state = models.GameStatePlaying

	log.Info().
		Str("game_id", s.id.String()).
		Str("result", string(s.toss.Result)).
		Str("current_turn", s.currentTurn.String()).
		Msg("toss resolved, match started")

	s.publish(events.TypeTossResolved, events.TossResolvedPayload{
		GameID:  s.id.String(),
		Result:  s.toss.Result,
		Players: s.playerIDs(),
	})
	s.publish(events.TypeStarted, events.StartedPayload{
		GameID:      s.id.String(),
		State:       s.state,
		Players:     s.playerIDs(),
		Board:       board.Clone(s.board),
		CurrentTurn: s.currentTurn.String(),
	})
}

// Move validates and applies one drop. Rejections leave board and turn
// untouched and broadcast nothing.
func (s *Session) Move(ctx context.Context, userID uuid.UUID, column int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case models.GameStateFinished:
		return ErrSessionFinished
	case models.GameStatePlaying:
	default:
		return ErrSessionNotPlaying
	}
	if userID != s.currentTurn {
		return ErrNotYourTurn
	}

	row, err := board.Apply(s.board, column, s.cellFor(userID))
	if err != nil {
		return err
	}

	outcome, _ := board.Detect(s.board, row, column)
	switch outcome {
	case board.OutcomeWin:
		winner := userID
		s.finish(ctx, &winner)
	case board.OutcomeDraw:
		s.finish(ctx, nil)
	default:
		s.currentTurn = s.turns.Advance(s.players, s.currentTurn)
		s.publish(events.TypeMoved, events.MovedPayload{
			GameID:      s.id.String(),
			Board:       board.Clone(s.board),
			CurrentTurn: s.currentTurn.String(),
		})
	}
	return nil
}

// End force-finishes the match with no winner. Only the creator may do
// this.
func (s *Session) End(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.GameStateFinished {
		return ErrSessionFinished
	}
	if userID != s.players[0] {
		return ErrNotAuthorized
	}
	s.finish(ctx, nil)
	return nil
}

// finish performs the terminal transition. Caller holds mu.
func (s *Session) finish(ctx context.Context, winner *uuid.UUID) {
	s.state = models.GameStateFinished
	s.winner = winner
	s.finishedAt = s.clock.Now()
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}

	var winnerStr *string
	if winner != nil {
		w := winner.String()
		winnerStr = &w
	}

	log.Info().
		Str("game_id", s.id.String()).
		Bool("decisive", winner != nil).
		Msg("match finished")

	s.publish(events.TypeEnded, events.EndedPayload{
		GameID: s.id.String(),
		Board:  board.Clone(s.board),
		Winner: winnerStr,
	})

	if s.recorder != nil {
		if err := s.recorder.RecordOutcome(ctx, s.id, winner, board.Clone(s.board)); err != nil {
			log.Error().Err(err).Str("game_id", s.id.String()).Msg("failed to record match outcome")
		}
	}
}

// Close stops any pending countdown. The callback checks state under the
// serializer, so a fire racing Close is harmless either way.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
}

// Snapshot returns the full current state for a new or reconnecting
// subscriber. The board is cloned so the snapshot never aliases live
// state.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		GameID:   s.id.String(),
		State:    s.state,
		Players:  s.playerIDs(),
		Board:    board.Clone(s.board),
		CoinToss: s.toss,
	}
	if s.currentTurn != uuid.Nil {
		snap.CurrentTurn = s.currentTurn.String()
	}
	if s.state == models.GameStateCountingDown {
		snap.Countdown = s.countdown
	}
	if s.winner != nil {
		w := s.winner.String()
		snap.Winner = &w
	}
	return snap
}

// State returns the current lifecycle phase.
func (s *Session) State() models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FinishedSince reports when the session reached the finished state.
func (s *Session) FinishedSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.GameStateFinished {
		return time.Time{}, false
	}
	return s.finishedAt, true
}

func (s *Session) isPlayer(userID uuid.UUID) bool {
	for _, p := range s.players {
		if p == userID {
			return true
		}
	}
	return false
}

func (s *Session) cellFor(userID uuid.UUID) models.Cell {
	if userID == s.players[0] {
		return models.CellPlayer1
	}
	return models.CellPlayer2
}

func (s *Session) playerIDs() []string {
	out := make([]string, len(s.players))
	for i, p := range s.players {
		out[i] = p.String()
	}
	return out
}

// publish marshals and fans out one event. Caller holds mu; the
// broadcaster must not call back into the session.
func (s *Session) publish(t events.Type, payload any) {
	if s.broadcaster == nil {
		return
	}
	evt, err := events.New(s.id, t, s.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("game_id", s.id.String()).Str("event_type", string(t)).Msg("failed to build event")
		return
	}
	s.broadcaster.Publish(s.id, evt)
}
