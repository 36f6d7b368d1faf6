// internal/normalize/normalize.go
package normalize

import (
	"sort"
	"strings"
	"time"

	apperrors "gitsync-standup/internal/errors"
	"gitsync-standup/internal/model"
)

// PushPayload mirrors the subset of the GitHub push webhook body the
// pipeline consumes.
type PushPayload struct {
	Ref        string          `json:"ref"`
	Before     string          `json:"before"`
	After      string          `json:"after"`
	Repository PayloadRepo     `json:"repository"`
	Pusher     PayloadUser     `json:"pusher"`
	Sender     PayloadUser     `json:"sender"`
	Commits    []PayloadCommit `json:"commits"`
	HeadCommit *PayloadCommit  `json:"head_commit"`
}

type PayloadRepo struct {
	Name     string      `json:"name"`
	FullName string      `json:"full_name"`
	Owner    PayloadUser `json:"owner"`
}

type PayloadUser struct {
	Name  string `json:"name"`
	Login string `json:"login"`
}

type PayloadCommit struct {
	ID        string      `json:"id"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
	Author    PayloadUser `json:"author"`
	Added     []string    `json:"added"`
	Removed   []string    `json:"removed"`
	Modified  []string    `json:"modified"`
}

// Normalize converts a raw push payload into an ordered PushEvent.
// Commit order in the payload is not trusted; records are sorted
// ascending by commit timestamp. An empty commit list (after the
// head_commit fallback) returns ErrEmptyPush so the pipeline can
// short-circuit without calling the summarizer.
func Normalize(payload PushPayload, receivedAt time.Time) (model.PushEvent, error) {
	commits := payload.Commits
	if len(commits) == 0 && payload.HeadCommit != nil {
		commits = []PayloadCommit{*payload.HeadCommit}
	}
	if len(commits) == 0 {
		return model.PushEvent{}, apperrors.ErrEmptyPush
	}

	records := make([]model.CommitRecord, 0, len(commits))
	for _, c := range commits {
		records = append(records, model.CommitRecord{
			SHA:          c.ID,
			Author:       authorName(c, payload),
			Message:      strings.TrimSpace(c.Message),
			Timestamp:    commitTime(c.Timestamp, receivedAt),
			LinesAdded:   model.LinesUnknown,
			LinesRemoved: model.LinesUnknown,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return model.PushEvent{
		RepoName:   repoName(payload.Repository),
		Branch:     branchName(payload.Ref),
		Pusher:     pusherName(payload),
		BeforeSHA:  payload.Before,
		AfterSHA:   payload.After,
		Commits:    records,
		ReceivedAt: receivedAt,
	}, nil
}

func repoName(r PayloadRepo) string {
	if r.FullName != "" {
		return r.FullName
	}
	if r.Name != "" {
		return r.Name
	}
	return "unknown"
}

func branchName(ref string) string {
	if ref == "" {
		return "unknown"
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func pusherName(p PushPayload) string {
	if p.Pusher.Name != "" {
		return p.Pusher.Name
	}
	if p.Sender.Login != "" {
		return p.Sender.Login
	}
	return "Unknown"
}

func authorName(c PayloadCommit, p PushPayload) string {
	if c.Author.Name != "" {
		return c.Author.Name
	}
	if c.Author.Login != "" {
		return c.Author.Login
	}
	return pusherName(p)
}

// commitTime parses the payload timestamp, substituting the arrival
// time when the field is missing or malformed rather than failing the
// whole batch.
func commitTime(raw string, receivedAt time.Time) time.Time {
	if raw == "" {
		return receivedAt
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return receivedAt
	}
	return t
}
