package reauth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{}

	hash, err := hasher.Hash("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	t.Run("CorrectPassword", func(t *testing.T) {
		ok, err := hasher.Verify("hunter2hunter2", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		ok, err := hasher.Verify("wrong", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.Error(t, err)

		_, err = hasher.Verify("", hash)
		assert.Error(t, err)
	})
}

func TestPasswordReauthProvider_Reauthenticate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryCredentialStore()
	provider := NewPasswordReauthProvider(store)

	userID := uuid.New()
	hash, err := BcryptHasher{}.Hash("correct-password")
	require.NoError(t, err)
	store.SetPasswordHash(userID, hash)

	t.Run("Success", func(t *testing.T) {
		assert.NoError(t, provider.Reauthenticate(ctx, userID, "correct-password"))
	})

	t.Run("InvalidCredential", func(t *testing.T) {
		err := provider.Reauthenticate(ctx, userID, "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("PrincipalNotFound", func(t *testing.T) {
		err := provider.Reauthenticate(ctx, uuid.New(), "correct-password")
		assert.ErrorIs(t, err, ErrPrincipalNotFound)
	})
}
