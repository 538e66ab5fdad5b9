package matchdir

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/jdrlotr/fourline/go/internal/models"
)

// Postgres is the production Directory backed by the matches table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed directory.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const createMatchSQL = `
INSERT INTO matches (id, owner_id, status, created_at)
VALUES ($1, $2, $3, $4)`

func (p *Postgres) CreateMatchRecord(ctx context.Context, ownerID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	_, err := p.db.ExecContext(ctx, createMatchSQL, id, ownerID, models.MatchStatusOpen, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create match record: %w", err)
	}
	return id, nil
}

const recordOutcomeSQL = `
UPDATE matches
SET status = $2, winner_id = $3, final_board = $4, finished_at = $5
WHERE id = $1`

const insertOutcomeAuditSQL = `
INSERT INTO match_events (id, match_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`

// RecordOutcome closes the match record and appends an audit row in one
// transaction, so history listings never observe a finished match with
// no outcome event.
func (p *Postgres) RecordOutcome(ctx context.Context, gameID uuid.UUID, winner *uuid.UUID, finalBoard models.Board) error {
	boardJSON, err := json.Marshal(finalBoard)
	if err != nil {
		return fmt.Errorf("failed to marshal final board: %w", err)
	}

	now := time.Now().UTC()
	var winnerID uuid.NullUUID
	if winner != nil {
		winnerID = uuid.NullUUID{UUID: *winner, Valid: true}
	}

	payload, err := json.Marshal(map[string]any{
		"gameId":     gameID.String(),
		"winnerId":   winner,
		"finishedAt": now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outcome payload: %w", err)
	}

	return runTx(ctx, p.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, recordOutcomeSQL,
			gameID,
			models.MatchStatusFinished,
			winnerID,
			pqtype.NullRawMessage{RawMessage: boardJSON, Valid: true},
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to record outcome: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrRecordNotFound
		}

		if _, err := tx.ExecContext(ctx, insertOutcomeAuditSQL,
			uuid.New(),
			gameID,
			"ended",
			pqtype.NullRawMessage{RawMessage: payload, Valid: true},
			now,
		); err != nil {
			return fmt.Errorf("failed to insert outcome event: %w", err)
		}
		return nil
	})
}

const listMatchesSQL = `
SELECT id, owner_id, status, winner_id, final_board, created_at, finished_at
FROM matches
WHERE owner_id = $1 OR winner_id = $1
ORDER BY created_at DESC
LIMIT 100`

func (p *Postgres) ListMatches(ctx context.Context, userID uuid.UUID) ([]models.MatchRecord, error) {
	rows, err := p.db.QueryContext(ctx, listMatchesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchRecord
	for rows.Next() {
		var (
			record     models.MatchRecord
			winnerID   uuid.NullUUID
			finalBoard pqtype.NullRawMessage
			finishedAt sql.NullTime
		)
		if err := rows.Scan(&record.ID, &record.OwnerID, &record.Status, &winnerID, &finalBoard, &record.CreatedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		if winnerID.Valid {
			w := winnerID.UUID
			record.WinnerID = &w
		}
		if finalBoard.Valid {
			if err := json.Unmarshal(finalBoard.RawMessage, &record.FinalBoard); err != nil {
				return nil, fmt.Errorf("failed to decode final board: %w", err)
			}
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			record.FinishedAt = &t
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match rows: %w", err)
	}
	return out, nil
}
