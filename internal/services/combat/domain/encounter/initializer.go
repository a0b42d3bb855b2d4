package encounter

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/emberclash/internal/platform/errors"
	"github.com/louisbranch/emberclash/internal/platform/id"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// ErrCharacterMissing indicates no active character snapshot exists for the
// player in this campaign.
var ErrCharacterMissing = apperrors.New(apperrors.CodeCharacterMissing, "no active character for player in campaign")

// Stores groups the persistence dependencies of the initializer.
type Stores struct {
	Characters storage.CharacterStore
	Sessions   storage.SessionStore
	Combatants storage.CombatantStore
	Events     storage.EventStore
	Boards     storage.BoardStore
}

// Initializer builds and persists a combat session's starting state.
type Initializer struct {
	stores Stores
	newID  func() (string, error)
	now    func() time.Time
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithIDGenerator overrides the session id generator, primarily for tests.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(initializer *Initializer) {
		initializer.newID = generator
	}
}

// WithClock overrides the initializer clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(initializer *Initializer) {
		initializer.now = now
	}
}

// NewInitializer creates an Initializer over the provided stores.
func NewInitializer(stores Stores, opts ...Option) *Initializer {
	initializer := &Initializer{
		stores: stores,
		newID:  id.NewID,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(initializer)
		}
	}
	return initializer
}

// Input describes a combat initialization request. A zero Seed derives one
// from the wall clock and BoardSeed.
type Input struct {
	CampaignID    string
	PlayerID      string
	Seed          uint32
	BoardSeed     uint32
	EncounterType string
}

// Result is the persisted outcome of combat initialization.
type Result struct {
	SessionID  string
	Seed       uint32
	Combatants []combatant.Combatant
	TurnOrder  []combatant.TurnOrderEntry
}

// Initialize creates a combat session: derives stats from the character
// snapshot and equipment, generates seeded opposition, fixes the turn
// order, appends the round/turn prologue to the ledger, and repairs the
// active board binding if it drifted.
func (initializer *Initializer) Initialize(ctx context.Context, input Input) (Result, error) {
	if strings.TrimSpace(input.CampaignID) == "" {
		return Result{}, apperrors.New(apperrors.CodeValidation, "campaign id is required")
	}
	if strings.TrimSpace(input.PlayerID) == "" {
		return Result{}, apperrors.New(apperrors.CodeValidation, "player id is required")
	}

	snapshot, equipment, err := initializer.stores.Characters.GetActiveCharacter(ctx, input.CampaignID, input.PlayerID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return Result{}, ErrCharacterMissing
		}
		return Result{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "load character snapshot", err)
	}

	now := initializer.now().UTC()
	seed := input.Seed
	if seed == 0 {
		seed = DeriveSeed(now, input.BoardSeed)
	}

	sessionID, err := initializer.newID()
	if err != nil {
		return Result{}, fmt.Errorf("generate session id: %w", err)
	}

	built := Build(BuildInput{
		Seed:          seed,
		PlayerID:      input.PlayerID,
		EncounterType: input.EncounterType,
		Snapshot: Snapshot{
			CharacterID: snapshot.CharacterID,
			Name:        snapshot.Name,
			Level:       snapshot.Level,
			Base:        snapshot.Base,
		},
		Equipment: equipment,
	})
	for i := range built.Combatants {
		built.Combatants[i].SessionID = sessionID
	}

	record := storage.SessionRecord{
		ID:            sessionID,
		CampaignID:    input.CampaignID,
		PlayerID:      input.PlayerID,
		Seed:          seed,
		EncounterType: input.EncounterType,
		Status:        storage.SessionStatusActive,
		StartedAt:     now,
	}
	if err := initializer.stores.Sessions.PutSession(ctx, record); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "persist session", err)
	}
	if err := initializer.stores.Combatants.PutCombatants(ctx, sessionID, built.Combatants); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "persist combatants", err)
	}

	if err := initializer.appendPrologue(ctx, input.CampaignID, sessionID, now, built); err != nil {
		return Result{}, err
	}

	if err := initializer.repairBoardBinding(ctx, input.CampaignID, input.PlayerID, sessionID, now); err != nil {
		return Result{}, err
	}

	return Result{
		SessionID:  sessionID,
		Seed:       seed,
		Combatants: built.Combatants,
		TurnOrder:  built.TurnOrder,
	}, nil
}

// appendPrologue records round_started and turn_started as the first two
// ledger entries so every session begins with a deterministic, replayable
// prologue.
func (initializer *Initializer) appendPrologue(ctx context.Context, campaignID, sessionID string, now time.Time, built BuildResult) error {
	byID := make(map[string]combatant.Combatant, len(built.Combatants))
	for _, c := range built.Combatants {
		byID[c.ID] = c
	}

	initiative := make([]event.InitiativeEntry, 0, len(built.TurnOrder))
	for _, entry := range built.TurnOrder {
		c := byID[entry.CombatantID]
		initiative = append(initiative, event.InitiativeEntry{
			CombatantID: c.ID,
			Name:        c.Name,
			Initiative:  c.Initiative,
		})
	}

	roundPayload, err := event.EncodePayload(event.RoundStartedPayload{Round: 0, Initiative: initiative})
	if err != nil {
		return fmt.Errorf("encode round payload: %w", err)
	}
	firstActor := built.TurnOrder[0].CombatantID
	turnPayload, err := event.EncodePayload(event.TurnStartedPayload{ActorID: firstActor})
	if err != nil {
		return fmt.Errorf("encode turn payload: %w", err)
	}

	prologue := []event.Event{
		{
			SessionID:   sessionID,
			CampaignID:  campaignID,
			TurnIndex:   0,
			Type:        event.TypeRoundStarted,
			Timestamp:   now,
			PayloadJSON: roundPayload,
		},
		{
			SessionID:   sessionID,
			CampaignID:  campaignID,
			TurnIndex:   0,
			Type:        event.TypeTurnStarted,
			ActorID:     firstActor,
			Timestamp:   now,
			PayloadJSON: turnPayload,
		},
	}
	for _, evt := range prologue {
		eventID, err := initializer.newID()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		evt.ID = eventID
		if _, err := initializer.stores.Events.AppendEvent(ctx, evt); err != nil {
			return apperrors.Wrap(apperrors.CodeUpstreamPersistence, "append prologue event", err)
		}
	}
	return nil
}

// repairBoardBinding reconciles the player's active combat board binding
// with the freshly created session. The repair is an idempotent upsert with
// a narrow postcondition (binding points at this session), not a retry
// loop; a concurrent initializer racing on the same player converges on
// whichever upsert lands last.
func (initializer *Initializer) repairBoardBinding(ctx context.Context, campaignID, playerID, sessionID string, now time.Time) error {
	binding, err := initializer.stores.Boards.GetActiveBoard(ctx, campaignID, playerID)
	if err != nil && apperrors.CodeOf(err) != apperrors.CodeNotFound {
		return apperrors.Wrap(apperrors.CodeUpstreamPersistence, "load board binding", err)
	}

	if binding.Kind == "combat" && binding.SessionID == sessionID {
		return nil
	}

	repaired := storage.BoardBinding{
		CampaignID: campaignID,
		PlayerID:   playerID,
		BoardID:    binding.BoardID,
		Kind:       "combat",
		SessionID:  sessionID,
		UpdatedAt:  now,
	}
	if repaired.BoardID == "" {
		boardID, err := initializer.newID()
		if err != nil {
			return fmt.Errorf("generate board id: %w", err)
		}
		repaired.BoardID = boardID
	}
	if err := initializer.stores.Boards.PutBoardBinding(ctx, repaired); err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamPersistence, "repair board binding", err)
	}
	return nil
}
