package authz_test

import (
	"testing"

	authz "github.com/goliatone/go-authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies", func(t *testing.T) {
		hash, err := authz.HashPassword("secret-word")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "secret-word", hash)

		assert.NoError(t, authz.ComparePasswordAndHash("secret-word", hash))
	})

	t.Run("rejects empty passwords", func(t *testing.T) {
		_, err := authz.HashPassword("")
		assert.ErrorIs(t, err, authz.ErrNoEmptyString)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash := quickHash("secret-word")

	t.Run("mismatch maps to the package error", func(t *testing.T) {
		err := authz.ComparePasswordAndHash("wrong", hash)
		assert.ErrorIs(t, err, authz.ErrMismatchedHashAndPassword)
	})

	t.Run("corrupt hash surfaces a distinct error", func(t *testing.T) {
		err := authz.ComparePasswordAndHash("secret-word", "not-a-hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, authz.ErrMismatchedHashAndPassword)
	})
}

func TestRandomPasswordHash(t *testing.T) {
	first := authz.RandomPasswordHash()
	second := authz.RandomPasswordHash()

	assert.NotEmpty(t, first)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}
