package matchdir

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jdrlotr/fourline/go/internal/board"
	"github.com/jdrlotr/fourline/go/internal/models"
)

func TestMemoryLifecycle(t *testing.T) {
	dir := NewMemory(nil)
	ctx := context.Background()
	owner := uuid.New()

	gameID, err := dir.CreateMatchRecord(ctx, owner)
	if err != nil {
		t.Fatalf("CreateMatchRecord() error = %v", err)
	}

	records, err := dir.ListMatches(ctx, owner)
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != gameID {
		t.Fatalf("ListMatches() = %+v, want one record %s", records, gameID)
	}
	if records[0].Status != models.MatchStatusOpen {
		t.Fatalf("status = %v, want OPEN", records[0].Status)
	}

	winner := uuid.New()
	final := board.New()
	if err := dir.RecordOutcome(ctx, gameID, &winner, final); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}

	records, err = dir.ListMatches(ctx, owner)
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	got := records[0]
	if got.Status != models.MatchStatusFinished {
		t.Fatalf("status = %v, want FINISHED", got.Status)
	}
	if got.WinnerID == nil || *got.WinnerID != winner {
		t.Fatalf("winner = %v, want %s", got.WinnerID, winner)
	}
	if got.FinishedAt == nil {
		t.Fatalf("finishedAt not set")
	}

	// The winner sees the match in their history too.
	records, err = dir.ListMatches(ctx, winner)
	if err != nil {
		t.Fatalf("ListMatches(winner) error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("winner history = %d records, want 1", len(records))
	}
}

func TestMemoryRecordOutcomeUnknownMatch(t *testing.T) {
	dir := NewMemory(nil)
	err := dir.RecordOutcome(context.Background(), uuid.New(), nil, board.New())
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("RecordOutcome() error = %v, want ErrRecordNotFound", err)
	}
}
