// Package mocks provides a testify mock of database.Querier shared by
// unit tests across packages.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitsync-standup/internal/database"
)

// Querier is a mock for database.Querier.
type Querier struct {
	mock.Mock
}

var _ database.Querier = (*Querier)(nil)

func (m *Querier) GetTeamByID(ctx context.Context, teamID string) (database.Team, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).(database.Team), args.Error(1)
}

func (m *Querier) GetTeamBySecret(ctx context.Context, secret string) (database.Team, error) {
	args := m.Called(ctx, secret)
	return args.Get(0).(database.Team), args.Error(1)
}

func (m *Querier) UpsertTeamSecret(ctx context.Context, arg database.UpsertTeamSecretParams) (database.Team, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Team), args.Error(1)
}

func (m *Querier) InsertActivity(ctx context.Context, arg database.InsertActivityParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Querier) GetActivityByBatchKey(ctx context.Context, arg database.GetActivityByBatchKeyParams) (database.Activity, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Activity), args.Error(1)
}

func (m *Querier) ListActivitiesInRange(ctx context.Context, arg database.ListActivitiesInRangeParams) ([]database.Activity, error) {
	args := m.Called(ctx, arg)
	if items, ok := args.Get(0).([]database.Activity); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Querier) ListRecentActivities(ctx context.Context, arg database.ListRecentActivitiesParams) ([]database.Activity, error) {
	args := m.Called(ctx, arg)
	if items, ok := args.Get(0).([]database.Activity); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Querier) DeleteActivitiesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Querier) UpsertGithubToken(ctx context.Context, arg database.UpsertGithubTokenParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) GetGithubToken(ctx context.Context, teamID string) (database.GithubToken, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).(database.GithubToken), args.Error(1)
}

func (m *Querier) DeleteGithubToken(ctx context.Context, teamID string) error {
	args := m.Called(ctx, teamID)
	return args.Error(0)
}

func (m *Querier) CreatePendingTokenRequest(ctx context.Context, arg database.CreatePendingTokenRequestParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) GetLatestPendingTokenRequest(ctx context.Context, userID string) (database.PendingTokenRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(database.PendingTokenRequest), args.Error(1)
}

func (m *Querier) DeletePendingTokenRequestsByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *Querier) DeletePendingTokenRequestsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
