package client

import (
	"github.com/google/uuid"
	"github.com/thisorthat/api/internal/core/domain"
)

// TokenStore is the durable client-side key-value area holding one
// anonymous token per poll.
type TokenStore interface {
	GetOrCreate(pollID uuid.UUID) (string, error)
	Has(pollID uuid.UUID) (bool, error)
	Clear(pollID uuid.UUID) error
}

// IdentityResolver produces the canonical voter identity for a poll: the
// registered user when the session is authenticated, otherwise the
// poll-scoped anonymous token. Resolving an anonymous identity for the
// first time persists a new token as a side effect.
type IdentityResolver struct {
	userID *uuid.UUID
	tokens TokenStore
}

func NewIdentityResolver(userID *uuid.UUID, tokens TokenStore) *IdentityResolver {
	return &IdentityResolver{
		userID: userID,
		tokens: tokens,
	}
}

func (r *IdentityResolver) Resolve(pollID uuid.UUID) (domain.Identity, error) {
	if r.userID != nil {
		return domain.NewUserIdentity(*r.userID), nil
	}

	token, err := r.tokens.GetOrCreate(pollID)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.NewAnonymousIdentity(token), nil
}
