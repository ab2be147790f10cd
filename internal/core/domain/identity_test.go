package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	userID := uuid.New()

	user := NewUserIdentity(userID)
	anon := NewAnonymousIdentity("anon_1718000000000_deadbeef")

	assert.False(t, user.IsAnonymous())
	assert.True(t, anon.IsAnonymous())
	assert.True(t, user.Valid())
	assert.True(t, anon.Valid())
	assert.NotEqual(t, user.Key(), anon.Key())

	// Same source, same key: the unit of uniqueness enforcement.
	assert.Equal(t, user.Key(), NewUserIdentity(userID).Key())

	assert.False(t, Identity{}.Valid())
	both := Identity{UserID: &userID, AnonToken: "anon_1_x"}
	assert.False(t, both.Valid())
}
