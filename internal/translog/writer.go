package translog

import (
	"context"
	"database/sql"
	"time"
)

// Writer appends rows to the transition log inside the caller's
// transaction, so a rolled back service call leaves no log rows behind.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, entityKind, entityID, transition, fromState, toState, actorID string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO transition_log(entity_kind,entity_id,transition,from_state,to_state,actor_id,occurred_at) VALUES (?,?,?,?,?,?,?)`,
		entityKind, entityID, transition, fromState, toState, actorID, ts)
	return err
}
