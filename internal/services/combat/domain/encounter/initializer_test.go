package encounter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

type fakeCharacterStore struct {
	snapshot  storage.CharacterSnapshot
	equipment []combatant.EquipmentItem
	missing   bool
}

func (f *fakeCharacterStore) GetActiveCharacter(ctx context.Context, campaignID, playerID string) (storage.CharacterSnapshot, []combatant.EquipmentItem, error) {
	if f.missing {
		return storage.CharacterSnapshot{}, nil, storage.ErrNotFound
	}
	return f.snapshot, f.equipment, nil
}

func (f *fakeCharacterStore) UpdateProgression(ctx context.Context, progression storage.Progression) error {
	return nil
}

type fakeSessionStore struct {
	sessions map[string]storage.SessionRecord
}

func (f *fakeSessionStore) PutSession(ctx context.Context, record storage.SessionRecord) error {
	if f.sessions == nil {
		f.sessions = make(map[string]storage.SessionRecord)
	}
	f.sessions[record.ID] = record
	return nil
}

func (f *fakeSessionStore) GetSession(ctx context.Context, campaignID, sessionID string) (storage.SessionRecord, error) {
	record, ok := f.sessions[sessionID]
	if !ok {
		return storage.SessionRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeSessionStore) EndSession(ctx context.Context, campaignID, sessionID string, endedAt time.Time) (storage.SessionRecord, bool, error) {
	record, ok := f.sessions[sessionID]
	if !ok {
		return storage.SessionRecord{}, false, storage.ErrNotFound
	}
	if record.Status == storage.SessionStatusEnded {
		return record, false, nil
	}
	record.Status = storage.SessionStatusEnded
	record.EndedAt = &endedAt
	f.sessions[sessionID] = record
	return record, true, nil
}

type fakeCombatantStore struct {
	rows map[string][]combatant.Combatant
}

func (f *fakeCombatantStore) PutCombatants(ctx context.Context, sessionID string, combatants []combatant.Combatant) error {
	if f.rows == nil {
		f.rows = make(map[string][]combatant.Combatant)
	}
	f.rows[sessionID] = combatants
	return nil
}

func (f *fakeCombatantStore) ListCombatants(ctx context.Context, sessionID string) ([]combatant.Combatant, error) {
	return f.rows[sessionID], nil
}

func (f *fakeCombatantStore) SetAlive(ctx context.Context, sessionID, combatantID string, alive bool) error {
	return nil
}

type fakeEventStore struct {
	events  []event.Event
	counter int64
}

func (f *fakeEventStore) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	f.counter++
	evt.Seq = uint64(len(f.events) + 1)
	evt.CreatedAt = f.counter
	f.events = append(f.events, evt)
	return evt, nil
}

func (f *fakeEventStore) ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error) {
	var out []event.Event
	for _, evt := range f.events {
		if evt.SessionID != sessionID || evt.Seq <= afterSeq {
			continue
		}
		out = append(out, evt)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEventStore) GetLatestEventSeq(ctx context.Context, sessionID string) (uint64, error) {
	var latest uint64
	for _, evt := range f.events {
		if evt.SessionID == sessionID && evt.Seq > latest {
			latest = evt.Seq
		}
	}
	return latest, nil
}

type fakeBoardStore struct {
	bindings map[string]storage.BoardBinding
	puts     int
}

func boardKey(campaignID, playerID string) string { return campaignID + "/" + playerID }

func (f *fakeBoardStore) GetActiveBoard(ctx context.Context, campaignID, playerID string) (storage.BoardBinding, error) {
	binding, ok := f.bindings[boardKey(campaignID, playerID)]
	if !ok {
		return storage.BoardBinding{}, storage.ErrNotFound
	}
	return binding, nil
}

func (f *fakeBoardStore) PutBoardBinding(ctx context.Context, binding storage.BoardBinding) error {
	if f.bindings == nil {
		f.bindings = make(map[string]storage.BoardBinding)
	}
	f.puts++
	f.bindings[boardKey(binding.CampaignID, binding.PlayerID)] = binding
	return nil
}

func testStores() (Stores, *fakeEventStore, *fakeBoardStore) {
	events := &fakeEventStore{}
	boards := &fakeBoardStore{}
	stores := Stores{
		Characters: &fakeCharacterStore{
			snapshot: storage.CharacterSnapshot{
				CharacterID: "char-1",
				CampaignID:  "camp-1",
				PlayerID:    "player-1",
				Name:        "Orin",
				Level:       3,
				Base:        combatant.StatBlock{Offense: 20, Defense: 20, Mobility: 30},
			},
		},
		Sessions:   &fakeSessionStore{},
		Combatants: &fakeCombatantStore{},
		Events:     events,
		Boards:     boards,
	}
	return stores, events, boards
}

func sequentialIDs(prefix string) func() (string, error) {
	counter := 0
	return func() (string, error) {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter), nil
	}
}

func TestInitializeAppendsPrologue(t *testing.T) {
	stores, events, _ := testStores()
	initializer := NewInitializer(stores,
		WithIDGenerator(sequentialIDs("id")),
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
	)

	result, err := initializer.Initialize(context.Background(), Input{
		CampaignID: "camp-1",
		PlayerID:   "player-1",
		Seed:       424242,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if len(events.events) != 2 {
		t.Fatalf("prologue events = %d, want 2", len(events.events))
	}
	if events.events[0].Type != event.TypeRoundStarted {
		t.Fatalf("first event = %s, want round_started", events.events[0].Type)
	}
	if events.events[1].Type != event.TypeTurnStarted {
		t.Fatalf("second event = %s, want turn_started", events.events[1].Type)
	}
	if events.events[1].ActorID != result.TurnOrder[0].CombatantID {
		t.Fatalf("turn_started actor = %s, want first in turn order %s",
			events.events[1].ActorID, result.TurnOrder[0].CombatantID)
	}

	var roundPayload event.RoundStartedPayload
	if err := event.DecodePayload(events.events[0], &roundPayload); err != nil {
		t.Fatalf("decode round payload: %v", err)
	}
	if roundPayload.Round != 0 {
		t.Fatalf("round = %d, want 0", roundPayload.Round)
	}
	if len(roundPayload.Initiative) != len(result.Combatants) {
		t.Fatalf("initiative snapshot entries = %d, want %d",
			len(roundPayload.Initiative), len(result.Combatants))
	}
}

func TestInitializeFailsWhenCharacterMissing(t *testing.T) {
	stores, _, _ := testStores()
	stores.Characters = &fakeCharacterStore{missing: true}
	initializer := NewInitializer(stores, WithIDGenerator(sequentialIDs("id")))

	_, err := initializer.Initialize(context.Background(), Input{
		CampaignID: "camp-1",
		PlayerID:   "player-1",
		Seed:       1,
	})
	if !errors.Is(err, ErrCharacterMissing) {
		t.Fatalf("expected ErrCharacterMissing, got %v", err)
	}
}

func TestInitializeValidatesInput(t *testing.T) {
	stores, _, _ := testStores()
	initializer := NewInitializer(stores)

	if _, err := initializer.Initialize(context.Background(), Input{PlayerID: "p"}); err == nil {
		t.Fatal("expected validation error for missing campaign id")
	}
	if _, err := initializer.Initialize(context.Background(), Input{CampaignID: "c"}); err == nil {
		t.Fatal("expected validation error for missing player id")
	}
}

func TestInitializeRepairsStaleBoardBinding(t *testing.T) {
	stores, _, boards := testStores()
	boards.bindings = map[string]storage.BoardBinding{
		boardKey("camp-1", "player-1"): {
			CampaignID: "camp-1",
			PlayerID:   "player-1",
			BoardID:    "board-7",
			Kind:       "town",
			SessionID:  "stale-session",
		},
	}
	initializer := NewInitializer(stores, WithIDGenerator(sequentialIDs("id")))

	result, err := initializer.Initialize(context.Background(), Input{
		CampaignID: "camp-1",
		PlayerID:   "player-1",
		Seed:       9,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	binding := boards.bindings[boardKey("camp-1", "player-1")]
	if binding.Kind != "combat" {
		t.Fatalf("binding kind = %s, want combat", binding.Kind)
	}
	if binding.SessionID != result.SessionID {
		t.Fatalf("binding session = %s, want %s", binding.SessionID, result.SessionID)
	}
	if binding.BoardID != "board-7" {
		t.Fatalf("repair must keep the existing board id, got %s", binding.BoardID)
	}
	if len(boards.bindings) != 1 {
		t.Fatalf("repair must not create duplicate bindings, got %d", len(boards.bindings))
	}
}

func TestInitializeDerivesSeedWhenZero(t *testing.T) {
	stores, _, _ := testStores()
	now := time.Unix(1700000123, 0)
	initializer := NewInitializer(stores,
		WithIDGenerator(sequentialIDs("id")),
		WithClock(func() time.Time { return now }),
	)

	result, err := initializer.Initialize(context.Background(), Input{
		CampaignID: "camp-1",
		PlayerID:   "player-1",
		BoardSeed:  77,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if result.Seed != DeriveSeed(now, 77) {
		t.Fatalf("seed = %d, want derived %d", result.Seed, DeriveSeed(now, 77))
	}
}
