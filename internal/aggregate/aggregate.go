// internal/aggregate/aggregate.go
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gitsync-standup/internal/database"
	"gitsync-standup/internal/model"
)

const dayFormat = "2006-01-02"

// Aggregator reads the activity store and produces day-bucketed commit
// counts per author. Stored timestamps are UTC; conversion to the
// presentation timezone happens here, at read time, so the rule can
// change without reprocessing history.
type Aggregator struct {
	db  database.Querier
	loc *time.Location
}

func New(db database.Querier, loc *time.Location) *Aggregator {
	return &Aggregator{db: db, loc: loc}
}

// Aggregate returns one entry per (day, author) over [from, to]
// inclusive, dates in the presentation timezone. Days with no activity
// appear with a zero count so chart rendering never special-cases gaps.
func (a *Aggregator) Aggregate(ctx context.Context, teamID string, from, to time.Time) ([]model.DayCount, error) {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, a.loc)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, a.loc)
	if toDay.Before(fromDay) {
		return nil, fmt.Errorf("invalid range: %s is after %s", fromDay.Format(dayFormat), toDay.Format(dayFormat))
	}

	rows, err := a.db.ListActivitiesInRange(ctx, database.ListActivitiesInRangeParams{
		TeamID: teamID,
		From:   fromDay.UTC(),
		To:     toDay.AddDate(0, 0, 1).UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading activity for team %s: %w", teamID, err)
	}

	type bucket struct {
		day    string
		author string
	}
	counts := make(map[bucket]int)
	for _, row := range rows {
		day := row.EventAt.In(a.loc).Format(dayFormat)
		for author, n := range authorCounts(row) {
			counts[bucket{day: day, author: author}] += n
		}
	}

	var series []model.DayCount
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayFormat)

		var dayEntries []model.DayCount
		for b, n := range counts {
			if b.day == key {
				dayEntries = append(dayEntries, model.DayCount{Day: key, Author: b.author, CommitCount: n})
			}
		}
		if len(dayEntries) == 0 {
			series = append(series, model.DayCount{Day: key, Author: "", CommitCount: 0})
			continue
		}
		sort.Slice(dayEntries, func(i, j int) bool { return dayEntries[i].Author < dayEntries[j].Author })
		series = append(series, dayEntries...)
	}

	return series, nil
}

// authorCounts expands one activity row into per-commit-author counts.
// Rows written before the breakdown column existed fall back to the
// pusher with the full commit count.
func authorCounts(row database.Activity) map[string]int {
	var counts map[string]int
	if len(row.AuthorCounts) > 0 {
		if err := json.Unmarshal(row.AuthorCounts, &counts); err == nil && len(counts) > 0 {
			return counts
		}
	}
	return map[string]int{row.Author: int(row.CommitCount)}
}

// Recent returns the latest activity rows for the dashboard feed.
func (a *Aggregator) Recent(ctx context.Context, teamID string, limit int) ([]model.ActivityRecord, error) {
	rows, err := a.db.ListRecentActivities(ctx, database.ListRecentActivitiesParams{
		TeamID: teamID,
		Limit:  int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent activity for team %s: %w", teamID, err)
	}

	records := make([]model.ActivityRecord, len(rows))
	for i, row := range rows {
		records[i] = model.ActivityRecord{
			ID:           row.ID,
			TeamID:       row.TeamID,
			Author:       row.Author,
			RepoName:     row.RepoName,
			Branch:       row.Branch,
			Summary:      row.Summary,
			CommitCount:  int(row.CommitCount),
			LinesAdded:   int(row.LinesAdded),
			LinesRemoved: int(row.LinesRemoved),
			BatchKey:     row.BatchKey,
			EventAt:      row.EventAt,
			CreatedAt:    row.CreatedAt,
		}
	}
	return records, nil
}
