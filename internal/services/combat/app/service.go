// Package app orchestrates the combat service operations over the domain
// packages and storage.
package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/emberclash/internal/platform/cache"
	apperrors "github.com/louisbranch/emberclash/internal/platform/errors"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/encounter"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/narrative"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/reward"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

const (
	snapshotCacheCapacity = 256
	snapshotCacheTTL      = 30 * time.Second
)

// sessionSnapshot is the cached read model for projections.
type sessionSnapshot struct {
	Session storage.SessionRecord
	Names   map[string]string
	Traits  map[string]combatant.Traits
}

// CombatService exposes combat initialization, reward claims, and
// presentation projection as one unit.
type CombatService struct {
	store       storage.Store
	initializer *encounter.Initializer
	resolver    *reward.Resolver
	snapshots   *cache.Cache[sessionSnapshot]
	tracer      trace.Tracer
}

// NewCombatService wires a CombatService over a composite store.
func NewCombatService(store storage.Store) *CombatService {
	return &CombatService{
		store: store,
		initializer: encounter.NewInitializer(encounter.Stores{
			Characters: store,
			Sessions:   store,
			Combatants: store,
			Events:     store,
			Boards:     store,
		}),
		resolver: reward.NewResolver(reward.Stores{
			Sessions:   store,
			Events:     store,
			Combatants: store,
			Characters: store,
			Items:      store,
			Story:      store,
			Grants:     store,
		}),
		snapshots: cache.New[sessionSnapshot](snapshotCacheCapacity, snapshotCacheTTL),
		tracer:    otel.Tracer("emberclash/combat"),
	}
}

// InitializeCombatRequest starts a combat session for a campaign player.
type InitializeCombatRequest struct {
	CampaignID    string
	PlayerID      string
	Seed          uint32
	BoardSeed     uint32
	EncounterType string
}

// InitializeCombatResponse reports the created session.
type InitializeCombatResponse struct {
	SessionID  string
	Seed       uint32
	Combatants []combatant.Combatant
	TurnOrder  []combatant.TurnOrderEntry
}

// InitializeCombat creates a combat session. Safe to retry; each attempt
// creates an independent session and the board binding converges on the
// latest one.
func (service *CombatService) InitializeCombat(ctx context.Context, req InitializeCombatRequest) (InitializeCombatResponse, error) {
	ctx, span := service.tracer.Start(ctx, "combat.initialize",
		trace.WithAttributes(attribute.String("campaign.id", req.CampaignID)))
	defer span.End()

	result, err := service.initializer.Initialize(ctx, encounter.Input{
		CampaignID:    req.CampaignID,
		PlayerID:      req.PlayerID,
		Seed:          req.Seed,
		BoardSeed:     req.BoardSeed,
		EncounterType: req.EncounterType,
	})
	if err != nil {
		span.RecordError(err)
		return InitializeCombatResponse{}, err
	}

	span.SetAttributes(attribute.String("session.id", result.SessionID))
	return InitializeCombatResponse{
		SessionID:  result.SessionID,
		Seed:       result.Seed,
		Combatants: result.Combatants,
		TurnOrder:  result.TurnOrder,
	}, nil
}

// ClaimRewardsRequest claims the end-of-combat reward for a player.
type ClaimRewardsRequest struct {
	CampaignID string
	SessionID  string
	PlayerID   string
}

// ClaimRewardsResponse reports the grant outcome.
type ClaimRewardsResponse struct {
	OK             bool
	AlreadyGranted bool
	Rewards        reward.Summary
}

// ClaimRewards resolves the reward claim. Retry-safe: repeated or racing
// claims converge on the single stored grant.
func (service *CombatService) ClaimRewards(ctx context.Context, req ClaimRewardsRequest) (ClaimRewardsResponse, error) {
	ctx, span := service.tracer.Start(ctx, "combat.claim_rewards",
		trace.WithAttributes(
			attribute.String("campaign.id", req.CampaignID),
			attribute.String("session.id", req.SessionID),
		))
	defer span.End()

	claimed, err := service.resolver.Claim(ctx, req.CampaignID, req.SessionID, req.PlayerID)
	if err != nil {
		span.RecordError(err)
		return ClaimRewardsResponse{}, err
	}

	span.SetAttributes(attribute.Bool("reward.already_granted", claimed.AlreadyGranted))
	return ClaimRewardsResponse{
		OK:             true,
		AlreadyGranted: claimed.AlreadyGranted,
		Rewards:        claimed.Rewards,
	}, nil
}

// ProjectPresentationRequest projects narration and effects for an observer.
type ProjectPresentationRequest struct {
	CampaignID string
	SessionID  string
	AfterSeq   uint64
	LineCount  int
	// History is the observer's own anti-repetition buffer; the service
	// never shares one across observers.
	History *narrative.History
}

// ProjectPresentationResponse carries the projected batch and the ledger
// position the observer should resume from.
type ProjectPresentationResponse struct {
	Output    narrative.Output
	LatestSeq uint64
}

// ProjectPresentation reads new ledger events and projects them. Session
// metadata (seed, roster names, traits) is cached briefly since projections
// poll far more often than rosters change.
func (service *CombatService) ProjectPresentation(ctx context.Context, req ProjectPresentationRequest) (ProjectPresentationResponse, error) {
	ctx, span := service.tracer.Start(ctx, "combat.project",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	snapshot, err := service.sessionSnapshot(ctx, req.CampaignID, req.SessionID)
	if err != nil {
		span.RecordError(err)
		return ProjectPresentationResponse{}, err
	}

	events, err := service.store.ListEvents(ctx, req.SessionID, req.AfterSeq, 0)
	if err != nil {
		span.RecordError(err)
		return ProjectPresentationResponse{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "list events", err)
	}

	latest := req.AfterSeq
	for _, evt := range events {
		if evt.Seq > latest {
			latest = evt.Seq
		}
	}

	output := narrative.Project(narrative.Input{
		SeedKey:   encounter.SeedKey(snapshot.Session.Seed),
		Events:    events,
		Names:     snapshot.Names,
		Traits:    snapshot.Traits,
		History:   req.History,
		LineCount: req.LineCount,
	})

	return ProjectPresentationResponse{Output: output, LatestSeq: latest}, nil
}

// EndSession marks a session's combat as concluded.
func (service *CombatService) EndSession(ctx context.Context, campaignID, sessionID string) (storage.SessionRecord, error) {
	ctx, span := service.tracer.Start(ctx, "combat.end_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	record, _, err := service.store.EndSession(ctx, campaignID, sessionID, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return storage.SessionRecord{}, err
	}
	service.snapshots.Evict(snapshotKey(campaignID, sessionID))
	return record, nil
}

func snapshotKey(campaignID, sessionID string) string {
	return campaignID + "/" + sessionID
}

func (service *CombatService) sessionSnapshot(ctx context.Context, campaignID, sessionID string) (sessionSnapshot, error) {
	key := snapshotKey(campaignID, sessionID)
	if cached, ok := service.snapshots.Get(key); ok {
		return cached, nil
	}

	session, err := service.store.GetSession(ctx, campaignID, sessionID)
	if err != nil {
		return sessionSnapshot{}, err
	}
	roster, err := service.store.ListCombatants(ctx, sessionID)
	if err != nil {
		return sessionSnapshot{}, apperrors.Wrap(apperrors.CodeUpstreamPersistence, "list combatants", err)
	}

	snapshot := sessionSnapshot{
		Session: session,
		Names:   make(map[string]string, len(roster)),
		Traits:  make(map[string]combatant.Traits),
	}
	for _, c := range roster {
		snapshot.Names[c.ID] = c.Name
		if c.Traits != nil {
			snapshot.Traits[c.ID] = *c.Traits
		}
	}

	service.snapshots.Put(key, snapshot)
	return snapshot, nil
}
