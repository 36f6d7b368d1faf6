// internal/database/querier.go
package database

import (
	"context"
	"time"
)

// Querier is the query surface consumed by the rest of the service.
// Tests substitute a mock; production code uses *Queries.
type Querier interface {
	GetTeamByID(ctx context.Context, teamID string) (Team, error)
	GetTeamBySecret(ctx context.Context, secret string) (Team, error)
	UpsertTeamSecret(ctx context.Context, arg UpsertTeamSecretParams) (Team, error)

	InsertActivity(ctx context.Context, arg InsertActivityParams) (int64, error)
	GetActivityByBatchKey(ctx context.Context, arg GetActivityByBatchKeyParams) (Activity, error)
	ListActivitiesInRange(ctx context.Context, arg ListActivitiesInRangeParams) ([]Activity, error)
	ListRecentActivities(ctx context.Context, arg ListRecentActivitiesParams) ([]Activity, error)
	DeleteActivitiesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	UpsertGithubToken(ctx context.Context, arg UpsertGithubTokenParams) error
	GetGithubToken(ctx context.Context, teamID string) (GithubToken, error)
	DeleteGithubToken(ctx context.Context, teamID string) error

	CreatePendingTokenRequest(ctx context.Context, arg CreatePendingTokenRequestParams) error
	GetLatestPendingTokenRequest(ctx context.Context, userID string) (PendingTokenRequest, error)
	DeletePendingTokenRequestsByUser(ctx context.Context, userID string) error
	DeletePendingTokenRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ Querier = (*Queries)(nil)
