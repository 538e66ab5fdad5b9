package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jdrlotr/fourline/go/internal/game/events"
	"github.com/jdrlotr/fourline/go/internal/matchdir"
	"github.com/jdrlotr/fourline/go/internal/registry"
)

// newTestGateway wires a manager, registry and router the way cmd does,
// with the manager's broadcast loop running.
func newTestGateway(t *testing.T) (*ConnectionManager, *registry.Registry, *IntentRouter) {
	t.Helper()

	cm := NewConnectionManager(DefaultConnectionConfig())
	reg := registry.New(matchdir.NewMemory(nil), cm, clockwork.NewFakeClock(), registry.DefaultConfig())
	router := NewIntentRouter(reg, cm)
	cm.SetIntentHandler(router)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	return cm, reg, router
}

// newTestConnection registers a subscriber without a real socket; events
// land in the Send channel.
func newTestConnection(cm *ConnectionManager, userID, gameID uuid.UUID) *Connection {
	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		GameID: gameID,
		Send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	cm.registerConnection(conn)
	return conn
}

func receiveEvent(t *testing.T, conn *Connection, want events.Type) *events.Event {
	t.Helper()
	for {
		select {
		case data := <-conn.Send:
			var evt events.Event
			if err := json.Unmarshal(data, &evt); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if evt.Type == want {
				return &evt
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func intentMessage(t *testing.T, intentType string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal intent payload: %v", err)
	}
	msg, err := json.Marshal(ClientIntent{Type: intentType, Data: data})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return msg
}

func TestJoinIntentBroadcastsCountdown(t *testing.T) {
	cm, reg, router := newTestGateway(t)
	ctx := context.Background()

	owner := uuid.New()
	session, err := reg.Create(ctx, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ownerConn := newTestConnection(cm, owner, session.ID())
	opponent := uuid.New()
	opponentConn := newTestConnection(cm, opponent, session.ID())

	router.HandleIntent(ctx, opponentConn, intentMessage(t, IntentJoinGame, JoinIntent{
		GameID: session.ID().String(),
		UserID: opponent.String(),
	}))

	// Both subscribers of the game receive the countdown.
	for _, conn := range []*Connection{ownerConn, opponentConn} {
		evt := receiveEvent(t, conn, events.TypeCountdown)
		var payload events.CountdownPayload
		if err := json.Unmarshal(evt.Data, &payload); err != nil {
			t.Fatalf("unmarshal countdown: %v", err)
		}
		if payload.SecondsRemaining != 3 {
			t.Fatalf("secondsRemaining = %d, want 3", payload.SecondsRemaining)
		}
	}
}

func TestMoveIntentRejectedBeforeStart(t *testing.T) {
	cm, reg, router := newTestGateway(t)
	ctx := context.Background()

	owner := uuid.New()
	session, err := reg.Create(ctx, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	conn := newTestConnection(cm, owner, session.ID())

	// Moving in the waiting state is a protocol error.
	router.HandleIntent(ctx, conn, intentMessage(t, IntentMakeMove, MoveIntent{
		GameID: session.ID().String(),
		UserID: owner.String(),
		Column: 3,
	}))

	evt := receiveEvent(t, conn, events.TypeRejected)
	var payload events.RejectedPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("unmarshal rejected: %v", err)
	}
	if payload.Reason != "SessionNotPlaying" {
		t.Fatalf("reason = %s, want SessionNotPlaying", payload.Reason)
	}
}

func TestUnknownGameRejectedNotFound(t *testing.T) {
	cm, _, router := newTestGateway(t)
	ctx := context.Background()

	user := uuid.New()
	conn := newTestConnection(cm, user, uuid.New())

	router.HandleIntent(ctx, conn, intentMessage(t, IntentJoinGame, JoinIntent{
		GameID: uuid.New().String(),
		UserID: user.String(),
	}))

	evt := receiveEvent(t, conn, events.TypeRejected)
	var payload events.RejectedPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("unmarshal rejected: %v", err)
	}
	if payload.Reason != "NotFound" {
		t.Fatalf("reason = %s, want NotFound", payload.Reason)
	}
}

func TestEndGameIntentAuthorization(t *testing.T) {
	cm, reg, router := newTestGateway(t)
	ctx := context.Background()

	owner := uuid.New()
	session, err := reg.Create(ctx, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stranger := uuid.New()
	conn := newTestConnection(cm, stranger, session.ID())

	router.HandleIntent(ctx, conn, intentMessage(t, IntentEndGame, EndIntent{
		GameID: session.ID().String(),
		UserID: stranger.String(),
	}))

	evt := receiveEvent(t, conn, events.TypeRejected)
	var payload events.RejectedPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		t.Fatalf("unmarshal rejected: %v", err)
	}
	if payload.Reason != "NotAuthorized" {
		t.Fatalf("reason = %s, want NotAuthorized", payload.Reason)
	}
}

func TestSendToConnectionFullBuffer(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := &Connection{ID: "c1", Send: make(chan []byte)} // unbuffered, nothing draining

	evt, err := events.New(uuid.New(), events.TypeSnapshot, time.Now(), struct{}{})
	if err != nil {
		t.Fatalf("events.New() error = %v", err)
	}
	if err := cm.SendToConnection(conn, evt); err == nil {
		t.Fatalf("SendToConnection() on full buffer error = nil, want error")
	}
}

func TestBroadcastRacesDisconnect(t *testing.T) {
	// A subscriber tearing down while a broadcast is in flight must never
	// take down the fan-out loop; the whole process rides on it.
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()

	evt, err := events.New(gameID, events.TypeMoved, time.Now(), struct{}{})
	if err != nil {
		t.Fatalf("events.New() error = %v", err)
	}

	for i := 0; i < 200; i++ {
		conn := newTestConnection(cm, uuid.New(), gameID)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cm.handleBroadcast(broadcastMessage{gameID: gameID, event: evt})
		}()
		go func() {
			defer wg.Done()
			cm.unregisterConnection(conn)
		}()
		wg.Wait()

		// Deliveries aimed at the departed connection must fail, not panic.
		_ = cm.SendToConnection(conn, evt)
	}
}

func TestStats(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameA, gameB := uuid.New(), uuid.New()

	for i := 0; i < 2; i++ {
		newTestConnection(cm, uuid.New(), gameA)
	}
	newTestConnection(cm, uuid.New(), gameB)

	total, active := cm.Stats()
	if total != 3 || active != 2 {
		t.Fatalf("Stats() = %d/%d, want 3/2", total, active)
	}
}

func TestIntentMessageRoundTrip(t *testing.T) {
	// The wire format clients send must decode into the intent structs.
	raw := fmt.Sprintf(`{"type":"makeMove","data":{"gameId":%q,"userId":%q,"column":4}}`,
		uuid.New(), uuid.New())

	var intent ClientIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		t.Fatalf("unmarshal intent: %v", err)
	}
	if intent.Type != IntentMakeMove {
		t.Fatalf("type = %s, want makeMove", intent.Type)
	}
	var move MoveIntent
	if err := json.Unmarshal(intent.Data, &move); err != nil {
		t.Fatalf("unmarshal move: %v", err)
	}
	if move.Column != 4 {
		t.Fatalf("column = %d, want 4", move.Column)
	}
}
