package matchdir

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jdrlotr/fourline/go/internal/models"
)

// ErrRecordNotFound is returned when an outcome targets an unknown match.
var ErrRecordNotFound = errors.New("match record not found")

// Memory is an in-memory Directory for tests and database-less runs.
type Memory struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	records map[uuid.UUID]models.MatchRecord
}

// NewMemory returns an empty in-memory directory.
func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:   clock,
		records: make(map[uuid.UUID]models.MatchRecord),
	}
}

func (m *Memory) CreateMatchRecord(_ context.Context, ownerID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	m.records[id] = models.MatchRecord{
		ID:        id,
		OwnerID:   ownerID,
		Status:    models.MatchStatusOpen,
		CreatedAt: m.clock.Now(),
	}
	return id, nil
}

func (m *Memory) RecordOutcome(_ context.Context, gameID uuid.UUID, winner *uuid.UUID, finalBoard models.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[gameID]
	if !ok {
		return ErrRecordNotFound
	}
	now := m.clock.Now()
	record.Status = models.MatchStatusFinished
	record.WinnerID = winner
	record.FinalBoard = finalBoard
	record.FinishedAt = &now
	m.records[gameID] = record
	return nil
}

func (m *Memory) ListMatches(_ context.Context, userID uuid.UUID) ([]models.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.MatchRecord
	for _, record := range m.records {
		if record.OwnerID == userID || (record.WinnerID != nil && *record.WinnerID == userID) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
