// internal/aggregate/aggregate_test.go
package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitsync-standup/internal/database"
	"gitsync-standup/internal/database/mocks"
	"gitsync-standup/internal/model"
)

func TestAggregate_BucketsByPresentationDay(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	ctx := context.Background()

	// 2024-06-01 20:00 UTC is already 2024-06-02 01:30 in IST; the row
	// must land in the June 2nd bucket.
	rows := []database.Activity{
		{
			TeamID:       "-100123",
			Author:       "alice",
			CommitCount:  2,
			AuthorCounts: []byte(`{"alice":1,"bob":1}`),
			EventAt:      time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		},
		{
			TeamID:      "-100123",
			Author:      "carol",
			CommitCount: 3,
			EventAt:     time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC), // 10:30 IST, June 1st
		},
	}

	mockQ := new(mocks.Querier)
	mockQ.On("ListActivitiesInRange", ctx, mock.MatchedBy(func(arg database.ListActivitiesInRangeParams) bool {
		return arg.TeamID == "-100123" && arg.To.Sub(arg.From) == 72*time.Hour
	})).Return(rows, nil).Once()

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, ist)
	to := time.Date(2024, 6, 3, 0, 0, 0, 0, ist)
	series, err := New(mockQ, ist).Aggregate(ctx, "-100123", from, to)
	require.NoError(t, err)

	assert.Equal(t, []model.DayCount{
		{Day: "2024-06-01", Author: "carol", CommitCount: 3},
		{Day: "2024-06-02", Author: "alice", CommitCount: 1},
		{Day: "2024-06-02", Author: "bob", CommitCount: 1},
		{Day: "2024-06-03", Author: "", CommitCount: 0},
	}, series)
	mockQ.AssertExpectations(t)
}

func TestAggregate_ZeroFillsEmptyRange(t *testing.T) {
	ctx := context.Background()
	mockQ := new(mocks.Querier)
	mockQ.On("ListActivitiesInRange", ctx, mock.Anything).Return([]database.Activity{}, nil).Once()

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	series, err := New(mockQ, time.UTC).Aggregate(ctx, "-100123", from, to)
	require.NoError(t, err)

	require.Len(t, series, 7)
	for i, dc := range series {
		assert.Equal(t, from.AddDate(0, 0, i).Format("2006-01-02"), dc.Day, "days come back in order")
		assert.Zero(t, dc.CommitCount)
		assert.Empty(t, dc.Author)
	}
}

func TestAggregate_LegacyRowFallsBackToPusher(t *testing.T) {
	ctx := context.Background()
	rows := []database.Activity{
		{
			TeamID:      "-100123",
			Author:      "alice",
			CommitCount: 4,
			EventAt:     time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	mockQ := new(mocks.Querier)
	mockQ.On("ListActivitiesInRange", ctx, mock.Anything).Return(rows, nil).Once()

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	series, err := New(mockQ, time.UTC).Aggregate(ctx, "-100123", day, day)
	require.NoError(t, err)

	assert.Equal(t, []model.DayCount{
		{Day: "2024-06-01", Author: "alice", CommitCount: 4},
	}, series)
}

func TestAggregate_InvalidRange(t *testing.T) {
	mockQ := new(mocks.Querier)
	from := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := New(mockQ, time.UTC).Aggregate(context.Background(), "-100123", from, to)
	assert.Error(t, err)
	mockQ.AssertNotCalled(t, "ListActivitiesInRange", mock.Anything, mock.Anything)
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	rows := []database.Activity{
		{
			ID:           7,
			TeamID:       "-100123",
			Author:       "alice",
			RepoName:     "acme/widgets",
			Branch:       "main",
			Summary:      "Fixed things.",
			CommitCount:  2,
			LinesAdded:   10,
			LinesRemoved: 3,
			BatchKey:     "abc",
			EventAt:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	mockQ := new(mocks.Querier)
	mockQ.On("ListRecentActivities", ctx, database.ListRecentActivitiesParams{
		TeamID: "-100123",
		Limit:  10,
	}).Return(rows, nil).Once()

	records, err := New(mockQ, time.UTC).Recent(ctx, "-100123", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(7), records[0].ID)
	assert.Equal(t, "acme/widgets", records[0].RepoName)
	assert.Equal(t, 2, records[0].CommitCount)
	mockQ.AssertExpectations(t)
}
