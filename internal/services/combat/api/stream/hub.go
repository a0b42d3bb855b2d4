// Package stream serves narration and visual effects to websocket
// observers.
//
// Every observer owns an independent projection: its own ledger cursor,
// anti-repetition history, and paced effect queue. Observers joining late or
// reconnecting simply replay the ledger from their cursor; no state is
// shared between connections.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/louisbranch/emberclash/internal/services/combat/app"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/effects"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/narrative"
)

const (
	defaultPollInterval = 250 * time.Millisecond
	writeTimeout        = 5 * time.Second
	observerHistory     = 32
)

// Projector is the slice of the combat service the hub needs.
type Projector interface {
	ProjectPresentation(ctx context.Context, req app.ProjectPresentationRequest) (app.ProjectPresentationResponse, error)
}

// Frame is one message pushed to an observer.
type Frame struct {
	Lines   []string             `json:"lines,omitempty"`
	Effects []effects.Descriptor `json:"effects,omitempty"`
}

// controlMessage is the client-to-server message shape. Clients send
// board_changed when their board context switches so queued effects for the
// old board are dropped instead of playing over the new one.
type controlMessage struct {
	Type string `json:"type"`
}

const controlBoardChanged = "board_changed"

// Hub upgrades observer connections and streams projection frames.
type Hub struct {
	projector    Projector
	upgrader     websocket.Upgrader
	pollInterval time.Duration
	cadence      time.Duration
	logger       *log.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithPollInterval overrides how often the ledger is re-projected.
func WithPollInterval(interval time.Duration) Option {
	return func(hub *Hub) {
		if interval > 0 {
			hub.pollInterval = interval
		}
	}
}

// WithEffectCadence overrides the effect drain cadence.
func WithEffectCadence(cadence time.Duration) Option {
	return func(hub *Hub) {
		if cadence > 0 {
			hub.cadence = cadence
		}
	}
}

// WithLogger overrides the hub logger.
func WithLogger(logger *log.Logger) Option {
	return func(hub *Hub) {
		hub.logger = logger
	}
}

// NewHub creates a Hub over a projector.
func NewHub(projector Projector, opts ...Option) *Hub {
	hub := &Hub{
		projector:    projector,
		upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		pollInterval: defaultPollInterval,
		cadence:      effects.DefaultCadence,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(hub)
		}
	}
	return hub
}

// ServeHTTP upgrades the connection and runs the observer loop until the
// client disconnects.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	campaignID := strings.TrimSpace(r.URL.Query().Get("campaign_id"))
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if campaignID == "" || sessionID == "" {
		http.Error(w, "campaign_id and session_id are required", http.StatusBadRequest)
		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Printf("stream: upgrade: %v", err)
		return
	}

	observer := &observer{
		hub:        hub,
		conn:       conn,
		campaignID: campaignID,
		sessionID:  sessionID,
		history:    narrative.NewHistory(observerHistory),
		queue:      effects.NewQueue(hub.cadence),
	}
	observer.run(r.Context())
}

// observer is one connected client and its private projection state.
type observer struct {
	hub        *Hub
	conn       *websocket.Conn
	campaignID string
	sessionID  string
	afterSeq   uint64
	history    *narrative.History
	queue      *effects.Queue
}

func (o *observer) run(ctx context.Context) {
	defer o.conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Read pump: handle control messages, unblock on close.
	go func() {
		defer cancel()
		for {
			_, data, err := o.conn.ReadMessage()
			if err != nil {
				return
			}
			o.handleControl(data)
		}
	}()

	ticker := time.NewTicker(o.hub.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := o.step(ctx, now); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					o.hub.logger.Printf("stream: session %s observer: %v", o.sessionID, err)
				}
				return
			}
		}
	}
}

// handleControl applies one client control message. Unrecognized or
// malformed messages are ignored.
func (o *observer) handleControl(data []byte) {
	var msg controlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type == controlBoardChanged {
		o.queue.Flush()
	}
}

// step projects any new ledger events and writes one frame when due.
func (o *observer) step(ctx context.Context, now time.Time) error {
	response, err := o.hub.projector.ProjectPresentation(ctx, app.ProjectPresentationRequest{
		CampaignID: o.campaignID,
		SessionID:  o.sessionID,
		AfterSeq:   o.afterSeq,
		History:    o.history,
	})
	if err != nil {
		return err
	}
	o.afterSeq = response.LatestSeq
	o.queue.Push(response.Output.Effects...)

	frame := Frame{
		Lines:   response.Output.Lines,
		Effects: o.queue.Drain(now),
	}
	if len(frame.Lines) == 0 && len(frame.Effects) == 0 {
		return nil
	}

	if err := o.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return o.conn.WriteJSON(frame)
}
