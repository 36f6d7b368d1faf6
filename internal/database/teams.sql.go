// internal/database/teams.sql.go
package database

import (
	"context"
)

const getTeamByID = `
SELECT team_id, secret, created_at
FROM teams
WHERE team_id = $1
`

// GetTeamByID fetches one team row. Returns pgx.ErrNoRows when the team
// has never activated the bot.
func (q *Queries) GetTeamByID(ctx context.Context, teamID string) (Team, error) {
	row := q.db.QueryRow(ctx, getTeamByID, teamID)
	var t Team
	err := row.Scan(&t.TeamID, &t.Secret, &t.CreatedAt)
	return t, err
}

const getTeamBySecret = `
SELECT team_id, secret, created_at
FROM teams
WHERE secret = $1
`

// GetTeamBySecret resolves a bare secret back to its team. Used only by
// the deep-link token setup flow, where no team id is claimed; webhook
// authentication always goes through the claimed-id path instead.
func (q *Queries) GetTeamBySecret(ctx context.Context, secret string) (Team, error) {
	row := q.db.QueryRow(ctx, getTeamBySecret, secret)
	var t Team
	err := row.Scan(&t.TeamID, &t.Secret, &t.CreatedAt)
	return t, err
}

const upsertTeamSecret = `
INSERT INTO teams (team_id, secret)
VALUES ($1, $2)
ON CONFLICT (team_id) DO UPDATE SET secret = EXCLUDED.secret
RETURNING team_id, secret, created_at
`

type UpsertTeamSecretParams struct {
	TeamID string
	Secret string
}

// UpsertTeamSecret installs a fresh secret for the team, atomically
// replacing any prior one. The row is committed before the caller sees
// the returned secret.
func (q *Queries) UpsertTeamSecret(ctx context.Context, arg UpsertTeamSecretParams) (Team, error) {
	row := q.db.QueryRow(ctx, upsertTeamSecret, arg.TeamID, arg.Secret)
	var t Team
	err := row.Scan(&t.TeamID, &t.Secret, &t.CreatedAt)
	return t, err
}
