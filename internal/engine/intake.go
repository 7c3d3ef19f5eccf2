package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dealflow/internal/domain"
)

func (e Engine) CreateContact(ctx context.Context, c domain.Contact, actorID string) (domain.Contact, error) {
	if c.FirstName == "" || c.LastName == "" {
		return c, errors.New("first_name and last_name are required")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermIntakeManage); err != nil {
		return c, err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := e.timestamp()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := e.Repo.InsertContactTx(ctx, tx, c); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

func (e Engine) CreateAgent(ctx context.Context, a domain.Agent, actorID string) (domain.Agent, error) {
	if a.FirstName == "" || a.LastName == "" {
		return a, errors.New("first_name and last_name are required")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermIntakeManage); err != nil {
		return a, err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := e.timestamp()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := e.Repo.InsertAgentTx(ctx, tx, a); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

func (e Engine) CreateProperty(ctx context.Context, p domain.Property, actorID string) (domain.Property, error) {
	if p.Name == "" {
		return p, errors.New("name is required")
	}
	tx, err := e.begin(ctx)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()
	if err := e.authorize(ctx, tx, actorID, PermIntakeManage); err != nil {
		return p, err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := e.timestamp()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := e.Repo.InsertPropertyTx(ctx, tx, p); err != nil {
		return p, translateConstraint(err, "property_reference", "a property with this reference code already exists")
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}
