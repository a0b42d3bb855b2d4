package stream

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/emberclash/internal/services/combat/app"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/effects"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/narrative"
)

type fakeProjector struct {
	mu      sync.Mutex
	batches []narrative.Output
	calls   int
}

func (f *fakeProjector) ProjectPresentation(ctx context.Context, req app.ProjectPresentationRequest) (app.ProjectPresentationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.batches) == 0 {
		return app.ProjectPresentationResponse{LatestSeq: req.AfterSeq}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return app.ProjectPresentationResponse{Output: batch, LatestSeq: req.AfterSeq + 1}, nil
}

func dialHub(t *testing.T, hub *Hub, query string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubStreamsFrames(t *testing.T) {
	projector := &fakeProjector{
		batches: []narrative.Output{{
			Lines: []string{"Orin tears into Bog Stalker for 9 damage."},
			Effects: []effects.Descriptor{
				{Kind: effects.KindHitImpact, Magnitude: 9, SeedKey: "7::fx::e1"},
			},
		}},
	}
	hub := NewHub(projector,
		WithPollInterval(10*time.Millisecond),
		WithEffectCadence(time.Millisecond),
		WithLogger(log.New(io.Discard, "", 0)),
	)

	conn := dialHub(t, hub, "campaign_id=camp-1&session_id=sess-1")

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(frame.Lines) != 1 || !strings.Contains(frame.Lines[0], "9 damage") {
		t.Fatalf("frame lines = %v", frame.Lines)
	}
	if len(frame.Effects) != 1 || frame.Effects[0].Kind != effects.KindHitImpact {
		t.Fatalf("frame effects = %+v", frame.Effects)
	}
}

func TestHubRequiresIdentifiers(t *testing.T) {
	hub := NewHub(&fakeProjector{}, WithLogger(log.New(io.Discard, "", 0)))
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?campaign_id=camp-1"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("dial without session_id must fail")
	}
}

func TestObserverFlushesQueuedEffectsOnBoardChange(t *testing.T) {
	queue := effects.NewQueue(time.Hour)
	queue.Push(
		effects.Descriptor{Kind: effects.KindHitImpact, Magnitude: 9},
		effects.Descriptor{Kind: effects.KindMoveTrail},
	)
	o := &observer{queue: queue}

	o.handleControl([]byte(`{"type":"board_changed"}`))
	if queue.Len() != 0 {
		t.Fatalf("queued effects after board change = %d, want 0", queue.Len())
	}

	queue.Push(effects.Descriptor{Kind: effects.KindDeathBurst})
	o.handleControl([]byte(`not json`))
	o.handleControl([]byte(`{"type":"something_else"}`))
	if queue.Len() != 1 {
		t.Fatalf("queued effects = %d, want 1 surviving unrelated messages", queue.Len())
	}
}

func TestHubAdvancesCursor(t *testing.T) {
	projector := &fakeProjector{
		batches: []narrative.Output{
			{Lines: []string{"first"}},
			{Lines: []string{"second"}},
		},
	}
	hub := NewHub(projector,
		WithPollInterval(5*time.Millisecond),
		WithEffectCadence(time.Millisecond),
		WithLogger(log.New(io.Discard, "", 0)),
	)

	conn := dialHub(t, hub, "campaign_id=camp-1&session_id=sess-1")
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	var first, second Frame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if first.Lines[0] != "first" || second.Lines[0] != "second" {
		t.Fatalf("frames = %v / %v, want ordered batches", first.Lines, second.Lines)
	}
}
