package auth

import (
	"context"
	"database/sql"
)

// Authorizer answers the single permission question the engine asks before
// running a service body, inside the service's transaction.
type Authorizer interface {
	Authorize(ctx context.Context, tx *sql.Tx, actorID, action string) error
	// ActorAgent resolves the agent bound to the actor, empty when unbound.
	ActorAgent(ctx context.Context, tx *sql.Tx, actorID string) (string, error)
}

// AllowAll grants everything. Used in tests and single-operator setups.
type AllowAll struct{}

func (AllowAll) Authorize(ctx context.Context, tx *sql.Tx, actorID, action string) error {
	return nil
}

func (AllowAll) ActorAgent(ctx context.Context, tx *sql.Tx, actorID string) (string, error) {
	return "", nil
}

// Authorize implements Authorizer over the SQL RBAC tables.
func (s Service) Authorize(ctx context.Context, tx *sql.Tx, actorID, action string) error {
	ok, err := s.ActorHasPermission(ctx, tx, actorID, action)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Permission: action}
	}
	return nil
}

// ActorAgent implements Authorizer.
func (s Service) ActorAgent(ctx context.Context, tx *sql.Tx, actorID string) (string, error) {
	return s.ActorAgentTx(ctx, tx, actorID)
}
