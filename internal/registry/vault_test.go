// internal/registry/vault_test.go
package registry

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitsync-standup/internal/database"
	"gitsync-standup/internal/database/mocks"
)

var testCipherKey = []byte("0123456789abcdef0123456789abcdef")

func TestVault_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mockQ := new(mocks.Querier)

	var sealed []byte
	mockQ.On("UpsertGithubToken", ctx, mock.MatchedBy(func(arg database.UpsertGithubTokenParams) bool {
		sealed = arg.EncryptedToken
		return arg.TeamID == "-100123" && len(arg.EncryptedToken) > 0
	})).Return(nil).Once()

	v, err := NewVault(mockQ, testCipherKey, testLogger())
	require.NoError(t, err)
	require.True(t, v.Enabled())

	require.NoError(t, v.StoreToken(ctx, "-100123", "ghp_secret_value", "alice"))

	// Ciphertext never contains the plaintext token.
	assert.NotContains(t, string(sealed), "ghp_secret_value")

	mockQ.On("GetGithubToken", ctx, "-100123").
		Return(database.GithubToken{TeamID: "-100123", EncryptedToken: sealed}, nil).Once()

	token, err := v.Token(ctx, "-100123")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret_value", token)
	mockQ.AssertExpectations(t)
}

func TestVault_Disabled(t *testing.T) {
	ctx := context.Background()
	v, err := NewVault(new(mocks.Querier), nil, testLogger())
	require.NoError(t, err)
	assert.False(t, v.Enabled())

	assert.ErrorIs(t, v.StoreToken(ctx, "-100123", "tok", ""), ErrVaultDisabled)
	_, err = v.Token(ctx, "-100123")
	assert.ErrorIs(t, err, ErrVaultDisabled)
}

func TestVault_BadKey(t *testing.T) {
	_, err := NewVault(new(mocks.Querier), []byte("too short"), testLogger())
	assert.Error(t, err)
}

func TestVault_TokenMissing(t *testing.T) {
	ctx := context.Background()
	mockQ := new(mocks.Querier)
	mockQ.On("GetGithubToken", ctx, "-100123").Return(database.GithubToken{}, pgx.ErrNoRows).Once()

	v, err := NewVault(mockQ, testCipherKey, testLogger())
	require.NoError(t, err)

	_, err = v.Token(ctx, "-100123")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestVault_MalformedCiphertext(t *testing.T) {
	ctx := context.Background()
	mockQ := new(mocks.Querier)
	mockQ.On("GetGithubToken", ctx, "-100123").
		Return(database.GithubToken{TeamID: "-100123", EncryptedToken: []byte{0x01}}, nil).Once()

	v, err := NewVault(mockQ, testCipherKey, testLogger())
	require.NoError(t, err)

	_, err = v.Token(ctx, "-100123")
	assert.Error(t, err)
}

func TestVault_PendingTeam(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("live request resolves the team", func(t *testing.T) {
		mockQ := new(mocks.Querier)
		mockQ.On("GetLatestPendingTokenRequest", ctx, "user-1").
			Return(database.PendingTokenRequest{
				UserID:    "user-1",
				TeamID:    "-100123",
				CreatedAt: now.Add(-5 * time.Minute),
			}, nil).Once()

		v, err := NewVault(mockQ, testCipherKey, testLogger())
		require.NoError(t, err)

		teamID, err := v.PendingTeam(ctx, "user-1", now)
		require.NoError(t, err)
		assert.Equal(t, "-100123", teamID)
	})

	t.Run("expired request is cleared and rejected", func(t *testing.T) {
		mockQ := new(mocks.Querier)
		mockQ.On("GetLatestPendingTokenRequest", ctx, "user-1").
			Return(database.PendingTokenRequest{
				UserID:    "user-1",
				TeamID:    "-100123",
				CreatedAt: now.Add(-16 * time.Minute),
			}, nil).Once()
		mockQ.On("DeletePendingTokenRequestsByUser", ctx, "user-1").Return(nil).Once()

		v, err := NewVault(mockQ, testCipherKey, testLogger())
		require.NoError(t, err)

		_, err = v.PendingTeam(ctx, "user-1", now)
		assert.ErrorIs(t, err, ErrNoToken)
		mockQ.AssertExpectations(t)
	})

	t.Run("no request at all", func(t *testing.T) {
		mockQ := new(mocks.Querier)
		mockQ.On("GetLatestPendingTokenRequest", ctx, "user-1").
			Return(database.PendingTokenRequest{}, pgx.ErrNoRows).Once()

		v, err := NewVault(mockQ, testCipherKey, testLogger())
		require.NoError(t, err)

		_, err = v.PendingTeam(ctx, "user-1", now)
		assert.ErrorIs(t, err, ErrNoToken)
	})
}
