package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/emberclash/internal/platform/errors"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/combatant"
	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrDuplicateRewardGrant indicates an append tried to record a second
// reward_granted event for the same (session, player). The loser of a claim
// race receives this and must return the winner's stored summary.
var ErrDuplicateRewardGrant = apperrors.New(apperrors.CodeDuplicateRewardGrant, "reward already granted for player in session")

// SessionStatus tracks the lifecycle of a combat session.
type SessionStatus string

const (
	// SessionStatusActive marks a session still resolving turns.
	SessionStatusActive SessionStatus = "active"
	// SessionStatusEnded marks a session whose combat has concluded.
	SessionStatusEnded SessionStatus = "ended"
)

// SessionRecord captures combat session lifecycle metadata.
type SessionRecord struct {
	ID            string
	CampaignID    string
	PlayerID      string
	Seed          uint32
	EncounterType string
	Status        SessionStatus
	StartedAt     time.Time
	EndedAt       *time.Time
}

// CharacterSnapshot is the read-only character record consumed at combat
// initialization and updated by reward resolution.
type CharacterSnapshot struct {
	CharacterID   string
	CampaignID    string
	PlayerID      string
	Name          string
	Level         int
	XP            int
	XPToNext      int
	UnspentPoints int
	Base          combatant.StatBlock
}

// Progression is the persisted level/xp/stat update applied on level-up.
type Progression struct {
	CharacterID   string
	CampaignID    string
	Level         int
	XP            int
	XPToNext      int
	UnspentPoints int
	Base          combatant.StatBlock
}

// BoardBinding ties a campaign player to their active board context.
type BoardBinding struct {
	CampaignID string
	PlayerID   string
	BoardID    string
	Kind       string
	SessionID  string
	UpdatedAt  time.Time
}

// ItemRecord is one granted loot item.
type ItemRecord struct {
	ID         string
	CampaignID string
	Name       string
	Rarity     string
	Slot       string
	Power      int
	StatKey    string
	CreatedAt  time.Time
}

// StoryEntry is a narrative log record summarizing a notable moment.
type StoryEntry struct {
	CampaignID string
	SessionID  string
	PlayerID   string
	Text       string
	CreatedAt  time.Time
}

// EventStore owns the append-only action-event ledger; this is the source
// of truth for combat state reconstruction.
type EventStore interface {
	// AppendEvent atomically appends an event and returns it with Seq and
	// CreatedAt assigned. Returns ErrDuplicateRewardGrant when a second
	// reward_granted event targets the same player in the same session.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns session events with Seq greater than afterSeq,
	// ordered by Seq ascending so cursor paging visits every row exactly
	// once. Callers needing the canonical presentation order
	// (TurnIndex, CreatedAt, ID) apply event.Sort to the result.
	ListEvents(ctx context.Context, sessionID string, afterSeq uint64, limit int) ([]event.Event, error)
	// GetLatestEventSeq returns the latest event sequence number for a
	// session, or 0 if no events exist.
	GetLatestEventSeq(ctx context.Context, sessionID string) (uint64, error)
}

// SessionStore owns combat session lifecycle state.
type SessionStore interface {
	PutSession(ctx context.Context, record SessionRecord) error
	GetSession(ctx context.Context, campaignID, sessionID string) (SessionRecord, error)
	// EndSession marks a session ended. The boolean reports whether the
	// session transitioned; an already-ended session returns false.
	EndSession(ctx context.Context, campaignID, sessionID string, endedAt time.Time) (SessionRecord, bool, error)
}

// CombatantStore persists the combatant rows for a session.
type CombatantStore interface {
	PutCombatants(ctx context.Context, sessionID string, combatants []combatant.Combatant) error
	ListCombatants(ctx context.Context, sessionID string) ([]combatant.Combatant, error)
	// SetAlive flips the alive flag; combatants are never deleted.
	SetAlive(ctx context.Context, sessionID, combatantID string, alive bool) error
}

// CharacterStore reads character snapshots and persists reward progression.
type CharacterStore interface {
	// GetActiveCharacter returns the active character snapshot and its
	// equipped items for a player in a campaign, or ErrNotFound.
	GetActiveCharacter(ctx context.Context, campaignID, playerID string) (CharacterSnapshot, []combatant.EquipmentItem, error)
	UpdateProgression(ctx context.Context, progression Progression) error
}

// BoardStore owns the active board binding per campaign player.
type BoardStore interface {
	GetActiveBoard(ctx context.Context, campaignID, playerID string) (BoardBinding, error)
	// PutBoardBinding upserts the binding; safe to race.
	PutBoardBinding(ctx context.Context, binding BoardBinding) error
}

// ItemStore persists loot items and their inventory attachment. Both writes
// are idempotent: re-putting an item id or re-attaching an existing
// (campaign, player, item) triple is a no-op.
type ItemStore interface {
	PutItem(ctx context.Context, item ItemRecord) error
	AttachToInventory(ctx context.Context, campaignID, playerID, itemID string) error
}

// StoryStore appends narrative log entries. Failures here are never
// critical to the operation that produced the entry.
type StoryStore interface {
	AppendStoryEntry(ctx context.Context, entry StoryEntry) error
}

// GrantWriter is the write surface available inside a reward grant
// transaction.
type GrantWriter interface {
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	UpdateProgression(ctx context.Context, progression Progression) error
}

// GrantTxRunner executes the critical reward writes as one atomic unit: the
// reward_granted append and the character progression either both commit or
// neither does, so the loser of a claim race leaves the character untouched.
type GrantTxRunner interface {
	GrantTx(ctx context.Context, fn func(GrantWriter) error) error
}

// Store is a composite interface for all persistence concerns of the
// combat service.
type Store interface {
	EventStore
	SessionStore
	CombatantStore
	CharacterStore
	BoardStore
	ItemStore
	StoryStore
	GrantTxRunner
	Close() error
}
