package game

import (
	"errors"

	"github.com/jdrlotr/fourline/go/internal/board"
)

// Protocol and move-legality errors. A rejected intent never mutates the
// session, so every error here leaves the match resumable.
var (
	ErrSessionFull       = errors.New("session full")
	ErrSessionFinished   = errors.New("session finished")
	ErrSessionNotPlaying = errors.New("session not playing")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNotAuthorized     = errors.New("not authorized")
)

// Rejection reasons surfaced to clients. Part of the compatibility surface.
const (
	ReasonSessionFull       = "SessionFull"
	ReasonSessionFinished   = "SessionFinished"
	ReasonSessionNotPlaying = "SessionNotPlaying"
	ReasonNotYourTurn       = "NotYourTurn"
	ReasonNotAuthorized     = "NotAuthorized"
	ReasonColumnFull        = "ColumnFull"
	ReasonColumnOutOfRange  = "ColumnOutOfRange"
	ReasonNotFound          = "NotFound"
)

// Reason maps a session error to its client-facing rejection reason.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrSessionFull):
		return ReasonSessionFull
	case errors.Is(err, ErrSessionFinished):
		return ReasonSessionFinished
	case errors.Is(err, ErrSessionNotPlaying):
		return ReasonSessionNotPlaying
	case errors.Is(err, ErrNotYourTurn):
		return ReasonNotYourTurn
	case errors.Is(err, ErrNotAuthorized):
		return ReasonNotAuthorized
	case errors.Is(err, board.ErrColumnFull):
		return ReasonColumnFull
	case errors.Is(err, board.ErrColumnOutOfRange):
		return ReasonColumnOutOfRange
	default:
		return ReasonNotFound
	}
}
