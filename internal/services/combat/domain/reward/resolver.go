package reward

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/louisbranch/emberclash/internal/platform/errors"
	"github.com/louisbranch/emberclash/internal/platform/id"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// ErrCombatNotEnded indicates a claim arrived while the session was still
// resolving turns.
var ErrCombatNotEnded = apperrors.New(apperrors.CodeCombatNotEnded, "combat session has not ended")

// ErrSessionMissing indicates the claimed session does not exist.
var ErrSessionMissing = apperrors.New(apperrors.CodeSessionMissing, "combat session not found")

const scanPageSize = 200

// Stores groups the persistence dependencies of the resolver.
type Stores struct {
	Sessions   storage.SessionStore
	Events     storage.EventStore
	Combatants storage.CombatantStore
	Characters storage.CharacterStore
	Items      storage.ItemStore
	Story      storage.StoryStore
	Grants     storage.GrantTxRunner
}

// Resolver grants end-of-combat rewards at most once per (session, player).
type Resolver struct {
	stores Stores
	newID  func() (string, error)
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIDGenerator overrides the item/event id generator, primarily for tests.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(resolver *Resolver) {
		resolver.newID = generator
	}
}

// WithClock overrides the resolver clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(resolver *Resolver) {
		resolver.now = now
	}
}

// WithLogger overrides the logger used for non-critical failures.
func WithLogger(logger *log.Logger) Option {
	return func(resolver *Resolver) {
		resolver.logger = logger
	}
}

// NewResolver creates a Resolver over the provided stores.
func NewResolver(stores Stores, opts ...Option) *Resolver {
	resolver := &Resolver{
		stores: stores,
		newID:  id.NewID,
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}
	return resolver
}

// Claim resolves the end-of-combat reward for a player.
//
// The session must already be ended. The ledger is scanned for a prior grant
// before anything is computed: a repeat claim returns the stored summary with
// AlreadyGranted set and performs no writes. Two racing claims are arbitrated
// by the ledger's uniqueness guarantee on reward_granted events. The grant
// append and the progression update commit in one transaction, and loot rows
// carry session-derived ids with idempotent inserts, so the loser of the
// race mutates nothing; it re-reads the winner's summary and returns it as a
// repeat.
func (resolver *Resolver) Claim(ctx context.Context, campaignID, sessionID, playerID string) (Claimed, error) {
	if strings.TrimSpace(campaignID) == "" {
		return Claimed{}, apperrors.New(apperrors.CodeValidation, "campaign id is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return Claimed{}, apperrors.New(apperrors.CodeValidation, "session id is required")
	}
	if strings.TrimSpace(playerID) == "" {
		return Claimed{}, apperrors.New(apperrors.CodeValidation, "player id is required")
	}

	session, err := resolver.stores.Sessions.GetSession(ctx, campaignID, sessionID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return Claimed{}, ErrSessionMissing
		}
		return Claimed{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "load session", err)
	}
	if session.Status != storage.SessionStatusEnded {
		return Claimed{}, ErrCombatNotEnded
	}

	scan, err := resolver.scanLedger(ctx, sessionID, playerID)
	if err != nil {
		return Claimed{}, err
	}
	if scan.grant != nil {
		return Claimed{AlreadyGranted: true, Rewards: scan.grant.Summary}, nil
	}

	outcome, err := resolver.deriveOutcome(ctx, sessionID)
	if err != nil {
		return Claimed{}, err
	}

	snapshot, _, err := resolver.stores.Characters.GetActiveCharacter(ctx, campaignID, playerID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return Claimed{}, apperrors.New(apperrors.CodeCharacterMissing, "no active character for player in campaign")
		}
		return Claimed{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "load character snapshot", err)
	}

	gain := ComputeXPGain(outcome)
	leveling := ApplyXP(snapshot.Level, snapshot.XP, snapshot.XPToNext, gain)
	grown := GrowStats(snapshot.Base, leveling.LevelUps)

	progression := storage.Progression{
		CharacterID:   snapshot.CharacterID,
		CampaignID:    campaignID,
		Level:         leveling.LevelAfter,
		XP:            leveling.XPAfter,
		XPToNext:      leveling.XPToNext,
		UnspentPoints: snapshot.UnspentPoints + 2*leveling.LevelUps,
		Base:          grown,
	}
	lootSeed := fmt.Sprintf("%d::loot::%s", session.Seed, playerID)
	loot := GenerateLoot(lootSeed, leveling.LevelAfter, outcome.DefeatedNPCs)
	persisted := resolver.persistLoot(ctx, campaignID, sessionID, playerID, loot)

	summary := Summary{
		XPGained:    gain,
		LevelBefore: leveling.LevelBefore,
		LevelAfter:  leveling.LevelAfter,
		LevelUps:    leveling.LevelUps,
		XPAfter:     leveling.XPAfter,
		XPToNext:    leveling.XPToNext,
		Loot:        persisted,
		Outcome:     outcome,
		LootFlagged: len(persisted) == 0,
	}
	if summary.LootFlagged {
		resolver.logger.Printf("reward: session %s player %s granted with empty loot", sessionID, playerID)
	}

	claimed, err := resolver.grant(ctx, session, playerID, scan.maxTurnIndex, summary, progression)
	if err != nil {
		return Claimed{}, err
	}
	if claimed.AlreadyGranted {
		return claimed, nil
	}

	resolver.appendStory(ctx, session, playerID, summary)
	return claimed, nil
}

type ledgerScan struct {
	grant        *GrantedPayload
	maxTurnIndex int
}

// scanLedger walks the full session ledger looking for a prior grant for this
// player and tracking the highest turn index seen.
func (resolver *Resolver) scanLedger(ctx context.Context, sessionID, playerID string) (ledgerScan, error) {
	var scan ledgerScan
	var afterSeq uint64
	for {
		events, err := resolver.stores.Events.ListEvents(ctx, sessionID, afterSeq, scanPageSize)
		if err != nil {
			return ledgerScan{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "scan event ledger", err)
		}
		for _, evt := range events {
			if evt.Seq > afterSeq {
				afterSeq = evt.Seq
			}
			if evt.TurnIndex > scan.maxTurnIndex {
				scan.maxTurnIndex = evt.TurnIndex
			}
			if evt.Type != event.TypeRewardGranted || evt.TargetID != playerID {
				continue
			}
			var payload GrantedPayload
			if err := event.DecodePayload(evt, &payload); err != nil {
				return ledgerScan{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "decode stored reward grant", err)
			}
			scan.grant = &payload
		}
		if len(events) < scanPageSize {
			return scan, nil
		}
	}
}

// deriveOutcome reads the final combatant rows into the reward outcome.
func (resolver *Resolver) deriveOutcome(ctx context.Context, sessionID string) (Outcome, error) {
	combatants, err := resolver.stores.Combatants.ListCombatants(ctx, sessionID)
	if err != nil {
		return Outcome{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "list combatants", err)
	}

	var outcome Outcome
	for _, c := range combatants {
		switch c.Team {
		case combatant.TeamNPC:
			if c.Alive {
				outcome.SurvivingNPCs++
			} else {
				outcome.DefeatedNPCs++
			}
		case combatant.TeamPlayer:
			outcome.PlayerAlive = c.Alive
		}
	}
	return outcome, nil
}

// persistLoot writes items and inventory attachments. Failures are logged
// and skipped; loot persistence never fails the claim. Item ids derive from
// the session so a claim that later loses the grant race writes the exact
// rows the winner writes, and the idempotent inserts make the repeat batch
// a no-op.
func (resolver *Resolver) persistLoot(ctx context.Context, campaignID, sessionID, playerID string, loot []LootItem) []LootItem {
	now := resolver.now().UTC()
	persisted := make([]LootItem, 0, len(loot))
	for i, item := range loot {
		item.ItemID = fmt.Sprintf("loot-%s-%s-%d", sessionID, playerID, i)

		record := storage.ItemRecord{
			ID:         item.ItemID,
			CampaignID: campaignID,
			Name:       item.Name,
			Rarity:     item.Rarity,
			Slot:       item.Slot,
			Power:      item.Power,
			StatKey:    item.StatKey,
			CreatedAt:  now,
		}
		if err := resolver.stores.Items.PutItem(ctx, record); err != nil {
			resolver.logger.Printf("reward: persist item %s: %v", item.ItemID, err)
			continue
		}
		if err := resolver.stores.Items.AttachToInventory(ctx, campaignID, playerID, item.ItemID); err != nil {
			resolver.logger.Printf("reward: attach item %s: %v", item.ItemID, err)
			continue
		}
		persisted = append(persisted, item)
	}
	return persisted
}

// grant commits the reward_granted event and the character progression in
// one transaction. Losing the uniqueness race rolls both back and degrades
// to re-reading the winner's summary.
func (resolver *Resolver) grant(ctx context.Context, session storage.SessionRecord, playerID string, turnIndex int, summary Summary, progression storage.Progression) (Claimed, error) {
	payload, err := event.EncodePayload(GrantedPayload{PlayerID: playerID, Summary: summary})
	if err != nil {
		return Claimed{}, fmt.Errorf("encode reward payload: %w", err)
	}
	eventID, err := resolver.newID()
	if err != nil {
		return Claimed{}, fmt.Errorf("generate event id: %w", err)
	}

	evt := event.Event{
		ID:          eventID,
		SessionID:   session.ID,
		CampaignID:  session.CampaignID,
		TurnIndex:   turnIndex,
		Type:        event.TypeRewardGranted,
		TargetID:    playerID,
		Timestamp:   resolver.now().UTC(),
		PayloadJSON: payload,
	}
	err = resolver.stores.Grants.GrantTx(ctx, func(writer storage.GrantWriter) error {
		if _, err := writer.AppendEvent(ctx, evt); err != nil {
			return err
		}
		return writer.UpdateProgression(ctx, progression)
	})
	if err == nil {
		return Claimed{Rewards: summary}, nil
	}
	if apperrors.CodeOf(err) != apperrors.CodeDuplicateRewardGrant {
		return Claimed{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "record reward grant", err)
	}

	rescan, err := resolver.scanLedger(ctx, session.ID, playerID)
	if err != nil {
		return Claimed{}, err
	}
	if rescan.grant == nil {
		return Claimed{}, apperrors.New(apperrors.CodeUpstreamPersistence, "duplicate grant reported but no stored grant found")
	}
	return Claimed{AlreadyGranted: true, Rewards: rescan.grant.Summary}, nil
}

// appendStory records the narrative log line for a grant. Best effort.
func (resolver *Resolver) appendStory(ctx context.Context, session storage.SessionRecord, playerID string, summary Summary) {
	text := "Victory earned " + strconv.Itoa(summary.XPGained) + " experience"
	if summary.LevelUps > 0 {
		text += " and a climb to level " + strconv.Itoa(summary.LevelAfter)
	}
	if len(summary.Loot) > 0 {
		text += ", claiming " + summary.Loot[0].Name
	}
	text += "."

	entry := storage.StoryEntry{
		CampaignID: session.CampaignID,
		SessionID:  session.ID,
		PlayerID:   playerID,
		Text:       text,
		CreatedAt:  resolver.now().UTC(),
	}
	if err := resolver.stores.Story.AppendStoryEntry(ctx, entry); err != nil {
		resolver.logger.Printf("reward: append story entry: %v", err)
	}
}
