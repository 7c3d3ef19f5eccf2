package repo

import (
	"context"
	"fmt"
	"strings"

	"dealflow/internal/domain"
)

type TransitionFilters struct {
	EntityKind string
	EntityID   string
	Transition string
	ActorID    string
	Limit      int
	Cursor     int64
}

// ListTransitions returns log rows newest first, optionally below a cursor.
func (r Repo) ListTransitions(ctx context.Context, f TransitionFilters) ([]domain.Transition, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Transition != "" {
		clauses = append(clauses, "transition=?")
		args = append(args, f.Transition)
	}
	if f.ActorID != "" {
		clauses = append(clauses, "actor_id=?")
		args = append(args, f.ActorID)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,entity_kind,entity_id,transition,from_state,to_state,actor_id,occurred_at FROM transition_log %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Transition
	for rows.Next() {
		var t domain.Transition
		if err := rows.Scan(&t.ID, &t.EntityKind, &t.EntityID, &t.Transition, &t.FromState, &t.ToState, &t.ActorID, &t.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// TransitionsAfter returns log rows with IDs greater than the cursor in
// ascending order, optionally restricted to one entity kind.
func (r Repo) TransitionsAfter(ctx context.Context, limit int, cursor int64, entityKind string) ([]domain.Transition, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,entity_kind,entity_id,transition,from_state,to_state,actor_id,occurred_at FROM transition_log %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Transition
	for rows.Next() {
		var t domain.Transition
		if err := rows.Scan(&t.ID, &t.EntityKind, &t.EntityID, &t.Transition, &t.FromState, &t.ToState, &t.ActorID, &t.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// LatestTransitionID returns the most recent log row ID.
func (r Repo) LatestTransitionID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM transition_log`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
