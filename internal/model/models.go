// internal/model/models.go
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// LinesUnknown is the sentinel for commits whose line-change counts were
// not present in the push payload and could not be recovered from the
// compare API.
const LinesUnknown = -1

// Team is one chat group that activated the bot. The secret is opaque
// and long-lived until rotated by a new /gitsync command.
type Team struct {
	ID        string
	Secret    string
	CreatedAt time.Time
}

// CommitRecord is one commit extracted from an inbound push payload.
// Immutable once normalized.
type CommitRecord struct {
	SHA          string
	Author       string
	Message      string
	Timestamp    time.Time
	LinesAdded   int
	LinesRemoved int
}

// PushEvent is the normalized form of one webhook delivery. It lives
// only for the duration of a single pipeline run.
type PushEvent struct {
	RepoName   string
	Branch     string
	Pusher     string
	BeforeSHA  string
	AfterSHA   string
	Commits    []CommitRecord
	ReceivedAt time.Time
}

// ReportSource tags how a standup report was produced.
type ReportSource string

const (
	SourceModel    ReportSource = "model"
	SourceFallback ReportSource = "fallback"
)

// StandupReport is the generated summary for one push. Written once;
// corrections are new reports, not edits.
type StandupReport struct {
	TeamID      string
	Summary     string
	NextSteps   []string
	Blockers    []string
	Source      ReportSource
	GeneratedAt time.Time
}

// ActivityRecord is the only durable artifact of a pipeline run and the
// sole input to velocity analytics.
type ActivityRecord struct {
	ID           int64
	TeamID       string
	Author       string
	RepoName     string
	Branch       string
	Summary      string
	CommitCount  int
	LinesAdded   int
	LinesRemoved int
	BatchKey     string
	EventAt      time.Time
	CreatedAt    time.Time
}

// DayCount is one (day, author) bucket of the velocity series. Day is
// formatted YYYY-MM-DD in the presentation timezone.
type DayCount struct {
	Day         string `json:"day"`
	Author      string `json:"author"`
	CommitCount int    `json:"commit_count"`
}

// BatchKey derives the idempotency key for one push delivery: a hash of
// the team id and the sorted commit SHAs. GitHub may redeliver the same
// webhook; two deliveries of the same batch always produce the same key.
func BatchKey(teamID string, commits []CommitRecord) string {
	shas := make([]string, len(commits))
	for i, c := range commits {
		shas[i] = c.SHA
	}
	sort.Strings(shas)

	h := sha256.New()
	h.Write([]byte(teamID))
	h.Write([]byte("\n"))
	h.Write([]byte(strings.Join(shas, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}
