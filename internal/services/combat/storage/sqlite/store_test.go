package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "combat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combat.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen must not re-run applied migrations: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestAppendEventAssignsOrderedCounters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"e1", "e2", "e3"} {
		appended, err := store.AppendEvent(ctx, event.Event{
			ID: id, SessionID: "sess-1", CampaignID: "camp-1",
			TurnIndex: i, Type: event.TypeDamage, ActorID: "pc-1", TargetID: "npc-1", Amount: 5,
		})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
		if appended.Seq != uint64(i+1) {
			t.Fatalf("seq = %d, want %d", appended.Seq, i+1)
		}
		if appended.CreatedAt != int64(i+1) {
			t.Fatalf("created_at = %d, want %d", appended.CreatedAt, i+1)
		}
	}

	latest, err := store.GetLatestEventSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if latest != 3 {
		t.Fatalf("latest seq = %d, want 3", latest)
	}

	if latest, err = store.GetLatestEventSeq(ctx, "sess-unknown"); err != nil || latest != 0 {
		t.Fatalf("unknown session latest = %d err = %v, want 0 and nil", latest, err)
	}
}

func TestListEventsPagesBySeq(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Turn indexes deliberately out of append order: paging follows seq, so
	// a cursor scan visits every row exactly once no matter how appenders
	// assigned turns.
	appendSpecs := []struct {
		id   string
		turn int
	}{
		{"e-late", 5},
		{"e-early", 1},
		{"e-mid", 3},
	}
	for _, spec := range appendSpecs {
		if _, err := store.AppendEvent(ctx, event.Event{
			ID: spec.id, SessionID: "sess-1", CampaignID: "camp-1",
			TurnIndex: spec.turn, Type: event.TypeMoved, ActorID: "pc-1",
			To: &event.Tile{X: spec.turn, Y: 2},
		}); err != nil {
			t.Fatalf("append %s: %v", spec.id, err)
		}
	}

	events, err := store.ListEvents(ctx, "sess-1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for i, want := range []string{"e-late", "e-early", "e-mid"} {
		if events[i].ID != want {
			t.Fatalf("seq position %d = %s, want %s", i, events[i].ID, want)
		}
	}
	if events[0].To == nil || events[0].To.X != 5 {
		t.Fatalf("tile round-trip failed: %+v", events[0].To)
	}

	var seen []string
	var after uint64
	for {
		page, err := store.ListEvents(ctx, "sess-1", after, 1)
		if err != nil {
			t.Fatalf("paged list: %v", err)
		}
		if len(page) == 0 {
			break
		}
		seen = append(seen, page[0].ID)
		after = page[0].Seq
	}
	if len(seen) != 3 || seen[0] != "e-late" || seen[1] != "e-early" || seen[2] != "e-mid" {
		t.Fatalf("paged scan visited %v, want every row once in seq order", seen)
	}

	// Presentation order comes from the domain sort, not the scan.
	event.Sort(events)
	for i, want := range []string{"e-early", "e-mid", "e-late"} {
		if events[i].ID != want {
			t.Fatalf("sorted position %d = %s, want %s", i, events[i].ID, want)
		}
	}
}

func TestAppendEventRejectsUnknownType(t *testing.T) {
	store := openTestStore(t)

	_, err := store.AppendEvent(context.Background(), event.Event{
		ID: "e1", SessionID: "sess-1", Type: "combat.totally_made_up",
	})
	if err == nil {
		t.Fatal("expected unknown event type to be rejected")
	}
}

func TestAppendRewardGrantUniquePerPlayer(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	grant := func(id, player string) error {
		_, err := store.AppendEvent(ctx, event.Event{
			ID: id, SessionID: "sess-1", CampaignID: "camp-1",
			Type: event.TypeRewardGranted, TargetID: player,
		})
		return err
	}

	if err := grant("g1", "player-1"); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if err := grant("g2", "player-1"); !errors.Is(err, storage.ErrDuplicateRewardGrant) {
		t.Fatalf("second grant err = %v, want ErrDuplicateRewardGrant", err)
	}
	if err := grant("g3", "player-2"); err != nil {
		t.Fatalf("grant for another player: %v", err)
	}

	latest, err := store.GetLatestEventSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if latest != 2 {
		t.Fatalf("latest seq = %d, want 2 committed grants", latest)
	}
}

func TestGrantTxCommitsEventAndProgressionTogether(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snapshot := storage.CharacterSnapshot{
		CharacterID: "char-1", CampaignID: "camp-1", PlayerID: "player-1",
		Name: "Orin", Level: 1, XPToNext: 250,
	}
	if err := store.PutCharacter(ctx, snapshot, true); err != nil {
		t.Fatalf("put character: %v", err)
	}

	grant := func(id string, progression storage.Progression) error {
		return store.GrantTx(ctx, func(writer storage.GrantWriter) error {
			if _, err := writer.AppendEvent(ctx, event.Event{
				ID: id, SessionID: "sess-1", CampaignID: "camp-1",
				Type: event.TypeRewardGranted, TargetID: "player-1",
			}); err != nil {
				return err
			}
			return writer.UpdateProgression(ctx, progression)
		})
	}

	progression := storage.Progression{
		CharacterID: "char-1", CampaignID: "camp-1",
		Level: 2, XP: 30, XPToNext: 360, UnspentPoints: 2,
		Base: combatant.StatBlock{Offense: 21, Defense: 21},
	}

	// A failed progression rolls the grant event back with it.
	missing := progression
	missing.CharacterID = "missing"
	if err := grant("g-rollback", missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("grant with missing character err = %v, want ErrNotFound", err)
	}
	latest, err := store.GetLatestEventSeq(ctx, "sess-1")
	if err != nil {
		t.Fatalf("latest seq: %v", err)
	}
	if latest != 0 {
		t.Fatalf("rolled-back grant left %d events in the ledger", latest)
	}

	if err := grant("g1", progression); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// A duplicate grant rolls back before the character row is touched.
	later := progression
	later.Level = 9
	if err := grant("g2", later); !errors.Is(err, storage.ErrDuplicateRewardGrant) {
		t.Fatalf("duplicate grant err = %v, want ErrDuplicateRewardGrant", err)
	}
	loaded, _, err := store.GetActiveCharacter(ctx, "camp-1", "player-1")
	if err != nil {
		t.Fatalf("reload character: %v", err)
	}
	if loaded.Level != 2 || loaded.XP != 30 {
		t.Fatalf("duplicate grant mutated character: level %d xp %d, want 2 and 30", loaded.Level, loaded.XP)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := storage.SessionRecord{
		ID: "sess-1", CampaignID: "camp-1", PlayerID: "player-1",
		Seed: 424242, EncounterType: "elite",
		Status: storage.SessionStatusActive, StartedAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := store.PutSession(ctx, record); err != nil {
		t.Fatalf("put session: %v", err)
	}

	loaded, err := store.GetSession(ctx, "camp-1", "sess-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Seed != 424242 || loaded.Status != storage.SessionStatusActive {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.EndedAt != nil {
		t.Fatal("active session must have nil EndedAt")
	}

	endedAt := time.Unix(1700000500, 0).UTC()
	ended, transitioned, err := store.EndSession(ctx, "camp-1", "sess-1", endedAt)
	if err != nil {
		t.Fatalf("end session: %v", err)
	}
	if !transitioned || ended.Status != storage.SessionStatusEnded {
		t.Fatalf("end session = %+v transitioned = %v", ended, transitioned)
	}
	if ended.EndedAt == nil || !ended.EndedAt.Equal(endedAt) {
		t.Fatalf("ended at = %v, want %v", ended.EndedAt, endedAt)
	}

	_, transitioned, err = store.EndSession(ctx, "camp-1", "sess-1", endedAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if transitioned {
		t.Fatal("already-ended session must not transition again")
	}

	if _, err := store.GetSession(ctx, "camp-1", "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing session err = %v, want ErrNotFound", err)
	}
}

func TestCombatantRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	roster := []combatant.Combatant{
		{
			ID: "pc-1", SessionID: "sess-1", Name: "Orin", Team: combatant.TeamPlayer,
			X: 1, Y: 2,
			Stats:      combatant.StatBlock{Offense: 30, Mobility: 40},
			HP:         120, HPMax: 120, Power: 30, PowerMax: 30,
			Initiative: 55, Alive: true,
			Statuses:   []combatant.Status{{ID: "burn", Name: "Burning", ExpiresTurn: 4}},
		},
		{
			ID: "npc-1", SessionID: "sess-1", Name: "Bog Stalker", Team: combatant.TeamNPC,
			HP: 100, HPMax: 100, Initiative: 31, Alive: true,
			Traits: &combatant.Traits{Aggression: 70, Intelligence: 20, Instinct: 40},
		},
	}
	if err := store.PutCombatants(ctx, "sess-1", roster); err != nil {
		t.Fatalf("put combatants: %v", err)
	}

	loaded, err := store.ListCombatants(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list combatants: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("combatants = %d, want 2", len(loaded))
	}
	if loaded[0].ID != "pc-1" || loaded[0].Stats.Mobility != 40 || loaded[0].X != 1 {
		t.Fatalf("player row = %+v", loaded[0])
	}
	if len(loaded[0].Statuses) != 1 || loaded[0].Statuses[0].Name != "Burning" {
		t.Fatalf("statuses round-trip failed: %+v", loaded[0].Statuses)
	}
	if loaded[1].Traits == nil || loaded[1].Traits.Aggression != 70 {
		t.Fatalf("traits round-trip failed: %+v", loaded[1].Traits)
	}

	if err := store.SetAlive(ctx, "sess-1", "npc-1", false); err != nil {
		t.Fatalf("set alive: %v", err)
	}
	loaded, err = store.ListCombatants(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list after set alive: %v", err)
	}
	if loaded[1].Alive {
		t.Fatal("npc-1 must be marked not alive")
	}
}

func TestCharacterSnapshotAndProgression(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snapshot := storage.CharacterSnapshot{
		CharacterID: "char-1", CampaignID: "camp-1", PlayerID: "player-1",
		Name: "Orin", Level: 3, XP: 100, XPToNext: 470, UnspentPoints: 1,
		Base: combatant.StatBlock{Offense: 25, Defense: 20, Mobility: 35},
	}
	if err := store.PutCharacter(ctx, snapshot, true); err != nil {
		t.Fatalf("put character: %v", err)
	}
	if err := store.PutEquipment(ctx, "char-1", combatant.EquipmentItem{
		ID: "blade", Slot: "weapon",
		Modifiers: map[string]float64{combatant.StatOffense: 6},
	}); err != nil {
		t.Fatalf("put equipment: %v", err)
	}

	loaded, equipment, err := store.GetActiveCharacter(ctx, "camp-1", "player-1")
	if err != nil {
		t.Fatalf("get active character: %v", err)
	}
	if loaded.CharacterID != "char-1" || loaded.Base.Offense != 25 {
		t.Fatalf("loaded = %+v", loaded)
	}
	if len(equipment) != 1 || equipment[0].Modifiers[combatant.StatOffense] != 6 {
		t.Fatalf("equipment = %+v", equipment)
	}

	if _, _, err := store.GetActiveCharacter(ctx, "camp-1", "player-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing character err = %v, want ErrNotFound", err)
	}

	progression := storage.Progression{
		CharacterID: "char-1", CampaignID: "camp-1",
		Level: 4, XP: 30, XPToNext: 580, UnspentPoints: 3,
		Base: combatant.StatBlock{Offense: 26, Defense: 21, Mobility: 36},
	}
	if err := store.UpdateProgression(ctx, progression); err != nil {
		t.Fatalf("update progression: %v", err)
	}
	loaded, _, err = store.GetActiveCharacter(ctx, "camp-1", "player-1")
	if err != nil {
		t.Fatalf("reload character: %v", err)
	}
	if loaded.Level != 4 || loaded.XP != 30 || loaded.Base.Offense != 26 {
		t.Fatalf("progression not applied: %+v", loaded)
	}

	progression.CharacterID = "missing"
	if err := store.UpdateProgression(ctx, progression); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing progression err = %v, want ErrNotFound", err)
	}
}

func TestBoardBindingUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.GetActiveBoard(ctx, "camp-1", "player-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing binding err = %v, want ErrNotFound", err)
	}

	binding := storage.BoardBinding{
		CampaignID: "camp-1", PlayerID: "player-1",
		BoardID: "board-1", Kind: "town", UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := store.PutBoardBinding(ctx, binding); err != nil {
		t.Fatalf("put binding: %v", err)
	}

	binding.Kind = "combat"
	binding.SessionID = "sess-1"
	binding.UpdatedAt = binding.UpdatedAt.Add(time.Minute)
	if err := store.PutBoardBinding(ctx, binding); err != nil {
		t.Fatalf("upsert binding: %v", err)
	}

	loaded, err := store.GetActiveBoard(ctx, "camp-1", "player-1")
	if err != nil {
		t.Fatalf("get binding: %v", err)
	}
	if loaded.Kind != "combat" || loaded.SessionID != "sess-1" || loaded.BoardID != "board-1" {
		t.Fatalf("binding = %+v", loaded)
	}
}

func TestItemsAndStoryLog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item := storage.ItemRecord{
		ID: "item-1", CampaignID: "camp-1", Name: "Gleaming Blade",
		Rarity: "magical", Slot: "weapon", Power: 42, StatKey: combatant.StatOffense,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := store.PutItem(ctx, item); err != nil {
		t.Fatalf("put item: %v", err)
	}
	if err := store.PutItem(ctx, item); err != nil {
		t.Fatalf("repeat put item must be idempotent: %v", err)
	}

	if err := store.AttachToInventory(ctx, "camp-1", "player-1", "item-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := store.AttachToInventory(ctx, "camp-1", "player-1", "item-1"); err != nil {
		t.Fatalf("repeat attach must be idempotent: %v", err)
	}

	if err := store.AppendStoryEntry(ctx, storage.StoryEntry{
		CampaignID: "camp-1", SessionID: "sess-1", PlayerID: "player-1",
		Text: "Victory earned 193 experience.", CreatedAt: time.Unix(1700000001, 0).UTC(),
	}); err != nil {
		t.Fatalf("append story: %v", err)
	}
}
