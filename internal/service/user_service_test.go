package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvannucci/paperbroker/internal/crypto"
	"github.com/mvannucci/paperbroker/internal/domain"
)

func (f *fixture) usersSvc() *UserService {
	return NewUserService(f.store.Users(), f.logger)
}

func TestUserServiceRegister(t *testing.T) {
	f := newFixture(t)
	svc := f.usersSvc()

	user, err := svc.Register(ctx(), "Ada", "  Ada@Example.COM ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email, "email is normalized")
	assert.NotEqual(t, "s3cret", user.PasswordHash, "password is never stored in plaintext")
	assert.True(t, crypto.VerifyPassword(user.PasswordHash, "s3cret"))
	assert.False(t, crypto.VerifyPassword(user.PasswordHash, "wrong"))

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(ctx(), "Ada Again", "ada@example.com", "other")
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := svc.Register(ctx(), "No Email", "not-an-email", "pw")
		require.Error(t, err)
	})
}
