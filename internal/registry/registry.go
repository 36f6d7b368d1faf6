// internal/registry/registry.go
package registry

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"gitsync-standup/internal/database"
	apperrors "gitsync-standup/internal/errors"
	"gitsync-standup/internal/model"
)

// Registry maps chat groups to their webhook secrets. All state lives
// in the teams table; multiple server processes stay consistent through
// the upsert semantics, not in-process locks.
type Registry struct {
	db     database.Querier
	logger *slog.Logger
}

func New(db database.Querier, logger *slog.Logger) *Registry {
	return &Registry{db: db, logger: logger}
}

// Resolve authenticates an inbound request. A secret that does not
// exactly match the stored one for the claimed team is rejected; it is
// never cross-mapped to another team, even if it happens to be valid
// elsewhere. The comparison is constant-time.
func (r *Registry) Resolve(ctx context.Context, teamID, presentedSecret string) (model.Team, error) {
	team, err := r.db.GetTeamByID(ctx, teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, apperrors.ErrTeamNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("looking up team %s: %w", teamID, err)
	}

	if subtle.ConstantTimeCompare([]byte(team.Secret), []byte(presentedSecret)) != 1 {
		r.logger.Warn("Webhook secret mismatch", "team_id", teamID)
		return model.Team{}, apperrors.ErrSecretMismatch
	}

	return model.Team{ID: team.TeamID, Secret: team.Secret, CreatedAt: team.CreatedAt}, nil
}

// Lookup fetches a team without checking a secret. Used by command
// flows that are already scoped to the chat group by the bot platform.
func (r *Registry) Lookup(ctx context.Context, teamID string) (model.Team, error) {
	team, err := r.db.GetTeamByID(ctx, teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, apperrors.ErrTeamNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("looking up team %s: %w", teamID, err)
	}
	return model.Team{ID: team.TeamID, Secret: team.Secret, CreatedAt: team.CreatedAt}, nil
}

// LookupBySecret resolves a bare secret to its team. Only the deep-link
// token setup flow uses this; webhooks always claim a team id.
func (r *Registry) LookupBySecret(ctx context.Context, secret string) (model.Team, error) {
	team, err := r.db.GetTeamBySecret(ctx, secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Team{}, apperrors.ErrTeamNotFound
	}
	if err != nil {
		return model.Team{}, fmt.Errorf("looking up team by secret: %w", err)
	}
	return model.Team{ID: team.TeamID, Secret: team.Secret, CreatedAt: team.CreatedAt}, nil
}

// Issue generates a fresh high-entropy secret for the team and persists
// it before returning. Rotation intentionally invalidates any webhook
// URL built from the prior secret.
func (r *Registry) Issue(ctx context.Context, teamID string) (string, error) {
	secret := uuid.NewString()

	if _, err := r.db.UpsertTeamSecret(ctx, database.UpsertTeamSecretParams{
		TeamID: teamID,
		Secret: secret,
	}); err != nil {
		return "", fmt.Errorf("persisting secret for team %s: %w", teamID, err)
	}

	r.logger.Info("Issued webhook secret", "team_id", teamID)
	return secret, nil
}

// WebhookURL builds the URL a team pastes into its repository settings.
func WebhookURL(baseURL, teamID, secret string) string {
	return fmt.Sprintf("%s/webhook/%s?secret=%s", baseURL, url.PathEscape(teamID), url.QueryEscape(secret))
}

// DashboardURL builds the range-free dashboard link replied to
// /dashboard commands.
func DashboardURL(baseURL, teamID, secret string) string {
	return fmt.Sprintf("%s/dashboard/%s?secret=%s", baseURL, url.PathEscape(teamID), url.QueryEscape(secret))
}
