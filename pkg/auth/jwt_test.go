package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	j := New("test-secret")

	tok, err := j.Sign(Identity{UserID: "u1", Name: "Asha"}, time.Hour)
	require.NoError(t, err)

	id, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "Asha", id.Name)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := New("secret-a").Sign(Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	_, err = New("secret-b").Verify(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	j := New("test-secret")
	tok, err := j.Sign(Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)

	_, err = j.Verify(tok)
	assert.Error(t, err)
}

func TestSignRequiresUserID(t *testing.T) {
	_, err := New("s").Sign(Identity{}, time.Hour)
	assert.Error(t, err)
}

func TestContextIdentity(t *testing.T) {
	ctx := context.Background()

	_, ok := User(ctx)
	assert.False(t, ok)

	ctx = WithUser(ctx, Identity{UserID: "u1", Name: "Asha"})
	id, ok := User(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}
