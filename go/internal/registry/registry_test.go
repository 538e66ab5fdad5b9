package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jdrlotr/fourline/go/internal/game/events"
	"github.com/jdrlotr/fourline/go/internal/matchdir"
	"github.com/jdrlotr/fourline/go/internal/models"
)

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(uuid.UUID, *events.Event) {}

func newTestRegistry(clock clockwork.Clock) (*Registry, *matchdir.Memory) {
	dir := matchdir.NewMemory(clock)
	cfg := Config{
		CountdownSeconds: 3,
		Retention:        10 * time.Minute,
		SweepInterval:    time.Minute,
	}
	return New(dir, noopBroadcaster{}, clock, cfg), dir
}

func TestCreateGetDestroy(t *testing.T) {
	r, dir := newTestRegistry(clockwork.NewFakeClock())
	ctx := context.Background()
	owner := uuid.New()

	session, err := r.Create(ctx, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := r.Get(session.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != session {
		t.Fatalf("Get() returned a different instance")
	}

	// The directory allocated the id, so the pre-game record exists.
	records, err := dir.ListMatches(ctx, owner)
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != session.ID() {
		t.Fatalf("directory records = %+v, want one for %s", records, session.ID())
	}

	r.Destroy(session.ID())
	if _, err := r.Get(session.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after destroy error = %v, want ErrNotFound", err)
	}
}

func TestGetUnknown(t *testing.T) {
	r, _ := newTestRegistry(clockwork.NewFakeClock())
	if _, err := r.Get(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSweepDestroysExpiredSessions(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r, _ := newTestRegistry(clock)
	ctx := context.Background()

	owner := uuid.New()
	finished, err := r.Create(ctx, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := finished.End(ctx, owner); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	active, err := r.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Before the retention period, nothing is swept.
	r.sweep()
	if r.Len() != 2 {
		t.Fatalf("sessions after early sweep = %d, want 2", r.Len())
	}

	clock.Advance(11 * time.Minute)
	r.sweep()

	if _, err := r.Get(finished.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("finished session survived sweep: %v", err)
	}
	if _, err := r.Get(active.ID()); err != nil {
		t.Fatalf("active session swept: %v", err)
	}
}

func TestDestroyedSessionStateIsTerminal(t *testing.T) {
	r, _ := newTestRegistry(clockwork.NewFakeClock())
	ctx := context.Background()
	owner := uuid.New()

	session, err := r.Create(ctx, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := session.Join(uuid.New()); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if got := session.State(); got != models.GameStateCountingDown {
		t.Fatalf("state = %v, want countingDown", got)
	}

	// Destroy cancels the pending countdown; the session never starts.
	r.Destroy(session.ID())
	if got := session.State(); got != models.GameStateCountingDown {
		t.Fatalf("state after destroy = %v, want countingDown (inert)", got)
	}
	if _, err := r.Get(session.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after destroy error = %v, want ErrNotFound", err)
	}
}
