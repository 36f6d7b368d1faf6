// internal/database/activity.sql.go
package database

import (
	"context"
	"time"
)

const insertActivity = `
INSERT INTO activity (
    team_id, author, repo_name, branch, summary,
    commit_count, author_counts, raw_event_count, lines_added, lines_removed,
    batch_key, event_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (team_id, batch_key) DO NOTHING
RETURNING id
`

type InsertActivityParams struct {
	TeamID        string
	Author        string
	RepoName      string
	Branch        string
	Summary       string
	CommitCount   int32
	AuthorCounts  []byte
	RawEventCount int32
	LinesAdded    int32
	LinesRemoved  int32
	BatchKey      string
	EventAt       time.Time
}

// InsertActivity writes one activity row. On a duplicate (team_id,
// batch_key) the insert is a no-op and pgx.ErrNoRows is returned; the
// caller then looks up the surviving row with GetActivityByBatchKey.
func (q *Queries) InsertActivity(ctx context.Context, arg InsertActivityParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertActivity,
		arg.TeamID,
		arg.Author,
		arg.RepoName,
		arg.Branch,
		arg.Summary,
		arg.CommitCount,
		arg.AuthorCounts,
		arg.RawEventCount,
		arg.LinesAdded,
		arg.LinesRemoved,
		arg.BatchKey,
		arg.EventAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getActivityByBatchKey = `
SELECT id, team_id, author, repo_name, branch, summary,
       commit_count, author_counts, raw_event_count, lines_added, lines_removed,
       batch_key, event_at, created_at
FROM activity
WHERE team_id = $1 AND batch_key = $2
`

type GetActivityByBatchKeyParams struct {
	TeamID   string
	BatchKey string
}

func (q *Queries) GetActivityByBatchKey(ctx context.Context, arg GetActivityByBatchKeyParams) (Activity, error) {
	row := q.db.QueryRow(ctx, getActivityByBatchKey, arg.TeamID, arg.BatchKey)
	var a Activity
	err := row.Scan(
		&a.ID, &a.TeamID, &a.Author, &a.RepoName, &a.Branch, &a.Summary,
		&a.CommitCount, &a.AuthorCounts, &a.RawEventCount, &a.LinesAdded, &a.LinesRemoved,
		&a.BatchKey, &a.EventAt, &a.CreatedAt,
	)
	return a, err
}

const listActivitiesInRange = `
SELECT id, team_id, author, repo_name, branch, summary,
       commit_count, author_counts, raw_event_count, lines_added, lines_removed,
       batch_key, event_at, created_at
FROM activity
WHERE team_id = $1 AND event_at >= $2 AND event_at < $3
ORDER BY event_at ASC
`

type ListActivitiesInRangeParams struct {
	TeamID string
	From   time.Time
	To     time.Time
}

// ListActivitiesInRange returns activity rows with stored (UTC)
// timestamps; timezone bucketing happens at read time in the
// aggregator, never here.
func (q *Queries) ListActivitiesInRange(ctx context.Context, arg ListActivitiesInRangeParams) ([]Activity, error) {
	rows, err := q.db.Query(ctx, listActivitiesInRange, arg.TeamID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(
			&a.ID, &a.TeamID, &a.Author, &a.RepoName, &a.Branch, &a.Summary,
			&a.CommitCount, &a.AuthorCounts, &a.RawEventCount, &a.LinesAdded, &a.LinesRemoved,
			&a.BatchKey, &a.EventAt, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const listRecentActivities = `
SELECT id, team_id, author, repo_name, branch, summary,
       commit_count, author_counts, raw_event_count, lines_added, lines_removed,
       batch_key, event_at, created_at
FROM activity
WHERE team_id = $1
ORDER BY event_at DESC
LIMIT $2
`

type ListRecentActivitiesParams struct {
	TeamID string
	Limit  int32
}

func (q *Queries) ListRecentActivities(ctx context.Context, arg ListRecentActivitiesParams) ([]Activity, error) {
	rows, err := q.db.Query(ctx, listRecentActivities, arg.TeamID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(
			&a.ID, &a.TeamID, &a.Author, &a.RepoName, &a.Branch, &a.Summary,
			&a.CommitCount, &a.AuthorCounts, &a.RawEventCount, &a.LinesAdded, &a.LinesRemoved,
			&a.BatchKey, &a.EventAt, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const deleteActivitiesBefore = `
DELETE FROM activity WHERE event_at < $1
`

// DeleteActivitiesBefore enforces the retention window. Returns the
// number of rows removed.
func (q *Queries) DeleteActivitiesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteActivitiesBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
