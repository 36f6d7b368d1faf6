// internal/database/tokens.sql.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertGithubToken = `
INSERT INTO github_tokens (team_id, encrypted_token, created_by)
VALUES ($1, $2, $3)
ON CONFLICT (team_id) DO UPDATE
SET encrypted_token = EXCLUDED.encrypted_token,
    created_by = EXCLUDED.created_by,
    created_at = NOW()
`

type UpsertGithubTokenParams struct {
	TeamID         string
	EncryptedToken []byte
	CreatedBy      pgtype.Text
}

func (q *Queries) UpsertGithubToken(ctx context.Context, arg UpsertGithubTokenParams) error {
	_, err := q.db.Exec(ctx, upsertGithubToken, arg.TeamID, arg.EncryptedToken, arg.CreatedBy)
	return err
}

const getGithubToken = `
SELECT team_id, encrypted_token, created_by, created_at
FROM github_tokens
WHERE team_id = $1
`

func (q *Queries) GetGithubToken(ctx context.Context, teamID string) (GithubToken, error) {
	row := q.db.QueryRow(ctx, getGithubToken, teamID)
	var t GithubToken
	err := row.Scan(&t.TeamID, &t.EncryptedToken, &t.CreatedBy, &t.CreatedAt)
	return t, err
}

const deleteGithubToken = `
DELETE FROM github_tokens WHERE team_id = $1
`

func (q *Queries) DeleteGithubToken(ctx context.Context, teamID string) error {
	_, err := q.db.Exec(ctx, deleteGithubToken, teamID)
	return err
}

const createPendingTokenRequest = `
INSERT INTO pending_token_requests (request_id, user_id, team_id)
VALUES ($1, $2, $3)
`

type CreatePendingTokenRequestParams struct {
	RequestID string
	UserID    string
	TeamID    string
}

func (q *Queries) CreatePendingTokenRequest(ctx context.Context, arg CreatePendingTokenRequestParams) error {
	_, err := q.db.Exec(ctx, createPendingTokenRequest, arg.RequestID, arg.UserID, arg.TeamID)
	return err
}

const getLatestPendingTokenRequest = `
SELECT request_id, user_id, team_id, created_at
FROM pending_token_requests
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestPendingTokenRequest(ctx context.Context, userID string) (PendingTokenRequest, error) {
	row := q.db.QueryRow(ctx, getLatestPendingTokenRequest, userID)
	var r PendingTokenRequest
	err := row.Scan(&r.RequestID, &r.UserID, &r.TeamID, &r.CreatedAt)
	return r, err
}

const deletePendingTokenRequestsByUser = `
DELETE FROM pending_token_requests WHERE user_id = $1
`

func (q *Queries) DeletePendingTokenRequestsByUser(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, deletePendingTokenRequestsByUser, userID)
	return err
}

const deletePendingTokenRequestsBefore = `
DELETE FROM pending_token_requests WHERE created_at < $1
`

func (q *Queries) DeletePendingTokenRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePendingTokenRequestsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
