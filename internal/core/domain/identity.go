package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Identity is the unit of vote-uniqueness enforcement: a registered user
// id or a client-held anonymous token, never both.
type Identity struct {
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	AnonToken string     `json:"anon_token,omitempty"`
}

func NewUserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: &userID}
}

func NewAnonymousIdentity(token string) Identity {
	return Identity{AnonToken: token}
}

func (i Identity) IsAnonymous() bool {
	return i.UserID == nil
}

// Valid reports whether exactly one identity source is set.
func (i Identity) Valid() bool {
	if i.UserID != nil {
		return i.AnonToken == ""
	}
	return i.AnonToken != ""
}

// Key returns the string under which vote uniqueness is enforced. Two
// identities with the same key are the same voter.
func (i Identity) Key() string {
	if i.UserID != nil {
		return fmt.Sprintf("user:%s", i.UserID)
	}
	return fmt.Sprintf("anon:%s", i.AnonToken)
}
