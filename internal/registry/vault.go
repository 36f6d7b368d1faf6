// internal/registry/vault.go
package registry

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"gitsync-standup/internal/database"
)

// pendingRequestTTL bounds how long a private-chat token paste stays
// linked to the group that requested it.
const pendingRequestTTL = 15 * time.Minute

// ErrVaultDisabled is returned when no cipher key was configured; the
// GitHub token flow is an optional enrichment.
var ErrVaultDisabled = errors.New("token vault disabled: no cipher key configured")

// ErrNoToken is returned when a team has no stored GitHub token.
var ErrNoToken = errors.New("no github token stored for team")

// Vault stores per-team GitHub tokens encrypted at rest with AES-GCM.
type Vault struct {
	db     database.Querier
	aead   cipher.AEAD
	logger *slog.Logger
}

// NewVault builds a Vault from a 32-byte key. A nil key yields a
// disabled vault whose operations return ErrVaultDisabled.
func NewVault(db database.Querier, key []byte, logger *slog.Logger) (*Vault, error) {
	v := &Vault{db: db, logger: logger}
	if len(key) == 0 {
		return v, nil
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("building token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("building token cipher: %w", err)
	}
	v.aead = aead
	return v, nil
}

// Enabled reports whether token storage is configured.
func (v *Vault) Enabled() bool { return v.aead != nil }

// StoreToken encrypts and upserts a team's GitHub token.
func (v *Vault) StoreToken(ctx context.Context, teamID, token, createdBy string) error {
	if v.aead == nil {
		return ErrVaultDisabled
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(token), nil)

	by := pgtype.Text{}
	if createdBy != "" {
		by = pgtype.Text{String: createdBy, Valid: true}
	}

	if err := v.db.UpsertGithubToken(ctx, database.UpsertGithubTokenParams{
		TeamID:         teamID,
		EncryptedToken: sealed,
		CreatedBy:      by,
	}); err != nil {
		return fmt.Errorf("persisting token for team %s: %w", teamID, err)
	}
	v.logger.Info("Stored GitHub token", "team_id", teamID)
	return nil
}

// Token decrypts the stored token for a team.
func (v *Vault) Token(ctx context.Context, teamID string) (string, error) {
	if v.aead == nil {
		return "", ErrVaultDisabled
	}

	row, err := v.db.GetGithubToken(ctx, teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("loading token for team %s: %w", teamID, err)
	}

	ns := v.aead.NonceSize()
	if len(row.EncryptedToken) < ns {
		return "", fmt.Errorf("stored token for team %s is malformed", teamID)
	}
	plain, err := v.aead.Open(nil, row.EncryptedToken[:ns], row.EncryptedToken[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypting token for team %s: %w", teamID, err)
	}
	return string(plain), nil
}

// RemoveToken deletes a team's stored token, typically after GitHub
// rejected it.
func (v *Vault) RemoveToken(ctx context.Context, teamID string) error {
	return v.db.DeleteGithubToken(ctx, teamID)
}

// BeginTokenRequest records that a user clicked the secure setup link
// for a group. The later private-chat token paste is matched back to
// the group through this row.
func (v *Vault) BeginTokenRequest(ctx context.Context, userID, teamID string) (string, error) {
	requestID := uuid.NewString()
	if err := v.db.CreatePendingTokenRequest(ctx, database.CreatePendingTokenRequestParams{
		RequestID: requestID,
		UserID:    userID,
		TeamID:    teamID,
	}); err != nil {
		return "", fmt.Errorf("creating pending token request: %w", err)
	}
	return requestID, nil
}

// PendingTeam returns the team awaiting a token from this user, or
// ErrNoToken if there is no live request. Expired requests are cleared.
func (v *Vault) PendingTeam(ctx context.Context, userID string, now time.Time) (string, error) {
	req, err := v.db.GetLatestPendingTokenRequest(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("loading pending token request: %w", err)
	}

	if now.Sub(req.CreatedAt) > pendingRequestTTL {
		_ = v.db.DeletePendingTokenRequestsByUser(ctx, userID)
		return "", ErrNoToken
	}
	return req.TeamID, nil
}

// FinishTokenRequest clears any pending rows for the user.
func (v *Vault) FinishTokenRequest(ctx context.Context, userID string) error {
	return v.db.DeletePendingTokenRequestsByUser(ctx, userID)
}
