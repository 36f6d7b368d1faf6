// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"gitsync-standup/internal/database"
	"gitsync-standup/internal/github"
	"gitsync-standup/internal/model"
	"gitsync-standup/internal/normalize"
	"gitsync-standup/internal/observability"
	"gitsync-standup/internal/registry"
	"gitsync-standup/internal/summarize"
	"gitsync-standup/internal/telegram"
)

// Status classifies the outcome of one webhook delivery.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusDuplicate Status = "duplicate"
)

// Outcome is returned to the HTTP layer after a pipeline run.
type Outcome struct {
	Status   Status
	RecordID int64
}

// Pipeline runs the standup flow for one webhook delivery: resolve team,
// normalize commits, summarize, persist, deliver. Each run is an
// independent unit of work; the only shared state is the database.
type Pipeline struct {
	db         database.Querier
	registry   *registry.Registry
	vault      *registry.Vault
	summarizer *summarize.Summarizer
	chat       *telegram.Client
	gh         *github.Client
	loc        *time.Location
	logger     *slog.Logger

	deliveryTimeout time.Duration
}

func New(
	db database.Querier,
	reg *registry.Registry,
	vault *registry.Vault,
	summarizer *summarize.Summarizer,
	chat *telegram.Client,
	gh *github.Client,
	loc *time.Location,
	deliveryTimeout time.Duration,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		db:              db,
		registry:        reg,
		vault:           vault,
		summarizer:      summarizer,
		chat:            chat,
		gh:              gh,
		loc:             loc,
		deliveryTimeout: deliveryTimeout,
		logger:          logger,
	}
}

// Process handles one push delivery. Authentication errors, ErrEmptyPush
// and persistence failures propagate to the caller; summarization and
// delivery failures are contained so a valid push always yields a
// persisted record.
func (p *Pipeline) Process(ctx context.Context, teamID, presentedSecret string, payload normalize.PushPayload) (Outcome, error) {
	started := time.Now()
	defer func() { observability.ObservePipeline(time.Since(started).Seconds()) }()

	team, err := p.registry.Resolve(ctx, teamID, presentedSecret)
	if err != nil {
		observability.PushRejected()
		return Outcome{}, err
	}

	event, err := normalize.Normalize(payload, time.Now().UTC())
	if err != nil {
		// ErrEmptyPush included: no report, no record, no chat noise.
		observability.PushEmpty()
		return Outcome{}, err
	}

	logger := p.logger.With("team_id", team.ID, "repo", event.RepoName, "commits", len(event.Commits))
	logger.Info("Processing push")

	linesAdded, linesRemoved := p.enrichLineCounts(ctx, team, event, logger)

	report := p.summarizer.Summarize(ctx, event, team)

	record, status, err := p.persist(ctx, team, event, report, linesAdded, linesRemoved)
	if err != nil {
		observability.PushFailed()
		return Outcome{}, fmt.Errorf("persisting activity: %w", err)
	}

	if status == StatusDuplicate {
		// A redelivered webhook already produced a report; do not post
		// it to the chat a second time.
		logger.Info("Duplicate delivery ignored", "record_id", record)
		observability.PushDuplicate()
		return Outcome{Status: status, RecordID: record}, nil
	}

	observability.PushProcessed()
	p.deliverAsync(report, event, team, logger)

	return Outcome{Status: status, RecordID: record}, nil
}

// enrichLineCounts asks the GitHub compare API for exact added/removed
// totals when the team has installed a token. Failures degrade to the
// unknown sentinel and never fail the pipeline; an auth failure also
// invalidates the stored token so the team is told to reconfigure.
func (p *Pipeline) enrichLineCounts(ctx context.Context, team model.Team, event model.PushEvent, logger *slog.Logger) (int, int) {
	if !p.vault.Enabled() || event.BeforeSHA == "" || event.AfterSHA == "" {
		return model.LinesUnknown, model.LinesUnknown
	}

	token, err := p.vault.Token(ctx, team.ID)
	if err != nil {
		if !errors.Is(err, registry.ErrNoToken) {
			logger.Warn("Could not load GitHub token", "error", err)
		}
		return model.LinesUnknown, model.LinesUnknown
	}

	totals, err := p.gh.CompareTotals(ctx, token, event.RepoName, event.BeforeSHA, event.AfterSHA)
	if err != nil {
		if errors.Is(err, github.ErrAuthFailed) {
			logger.Warn("GitHub token rejected, removing it", "error", err)
			if rmErr := p.vault.RemoveToken(ctx, team.ID); rmErr != nil {
				logger.Error("Failed to remove invalid token", "error", rmErr)
			}
			p.notifyTokenInvalid(team)
		} else {
			logger.Warn("Compare API enrichment failed", "error", err)
		}
		return model.LinesUnknown, model.LinesUnknown
	}

	return totals.LinesAdded, totals.LinesRemoved
}

// persist writes the activity record idempotently. On a duplicate
// (team_id, batch_key) the existing row id is returned with
// StatusDuplicate and nothing is updated.
func (p *Pipeline) persist(ctx context.Context, team model.Team, event model.PushEvent, report model.StandupReport, linesAdded, linesRemoved int) (int64, Status, error) {
	batchKey := model.BatchKey(team.ID, event.Commits)
	eventAt := event.Commits[len(event.Commits)-1].Timestamp

	authorCounts := make(map[string]int, len(event.Commits))
	for _, c := range event.Commits {
		authorCounts[c.Author]++
	}
	countsJSON, err := json.Marshal(authorCounts)
	if err != nil {
		return 0, "", fmt.Errorf("encoding author counts: %w", err)
	}

	id, err := p.db.InsertActivity(ctx, database.InsertActivityParams{
		TeamID:        team.ID,
		Author:        event.Pusher,
		RepoName:      event.RepoName,
		Branch:        event.Branch,
		Summary:       report.Summary,
		CommitCount:   int32(len(event.Commits)),
		AuthorCounts:  countsJSON,
		RawEventCount: 1,
		LinesAdded:    int32(linesAdded),
		LinesRemoved:  int32(linesRemoved),
		BatchKey:      batchKey,
		EventAt:       eventAt.UTC(),
	})
	if err == nil {
		return id, StatusProcessed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, "", err
	}

	existing, err := p.db.GetActivityByBatchKey(ctx, database.GetActivityByBatchKeyParams{
		TeamID:   team.ID,
		BatchKey: batchKey,
	})
	if err != nil {
		return 0, "", fmt.Errorf("looking up existing record: %w", err)
	}
	return existing.ID, StatusDuplicate, nil
}

// deliverAsync posts the report to the chat after the webhook response
// is already guaranteed a durable record. Best effort: the delivery
// gets its own deadline detached from the request context.
func (p *Pipeline) deliverAsync(report model.StandupReport, event model.PushEvent, team model.Team, logger *slog.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.deliveryTimeout)
		defer cancel()

		if err := p.chat.SendReport(ctx, report, event, team, p.loc); err != nil {
			logger.Error("Chat delivery failed", "error", err)
		}
	}()
}

func (p *Pipeline) notifyTokenInvalid(team model.Team) {
	msg := "⚠️ GitSync: the saved GitHub token for this group appears invalid or lacks permissions. " +
		"Exact line counts are disabled until an admin reconfigures it via /gitsync."
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.deliveryTimeout)
		defer cancel()
		if err := p.chat.SendMessage(ctx, team.ID, msg); err != nil {
			p.logger.Warn("Could not notify group about invalid token", "team_id", team.ID, "error", err)
		}
	}()
}
