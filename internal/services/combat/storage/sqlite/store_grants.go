package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/louisbranch/emberclash/internal/services/combat/domain/event"
	"github.com/louisbranch/emberclash/internal/services/combat/storage"
)

// grantWriter binds the grant-critical writes to one open transaction.
type grantWriter struct {
	tx *sql.Tx
}

func (w grantWriter) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	return appendEventTx(ctx, w.tx, evt)
}

func (w grantWriter) UpdateProgression(ctx context.Context, progression storage.Progression) error {
	return updateProgression(ctx, w.tx, progression)
}

// GrantTx runs fn inside a single transaction. The reward_granted append
// and the progression update commit together or not at all; a duplicate
// grant surfaces storage.ErrDuplicateRewardGrant and rolls everything back.
func (s *Store) GrantTx(ctx context.Context, fn func(storage.GrantWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(grantWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reward grant: %w", err)
	}
	return nil
}
