// internal/summarize/summarize.go
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "gitsync-standup/internal/errors"
	"gitsync-standup/internal/model"
	"gitsync-standup/internal/observability"
)

const (
	// maxAttempts bounds latency: the external call is tried once and
	// retried once, then the deterministic fallback takes over.
	maxAttempts = 2
	retryDelay  = 500 * time.Millisecond
)

// Summarizer turns a normalized push event into a standup report. The
// external model call is wrapped in a timeout and a one-retry budget;
// on exhaustion the report is built from the deterministic fallback, so
// the pipeline never fails solely because the model is unavailable.
type Summarizer struct {
	gen           Generator
	commitCeiling int
	callTimeout   time.Duration
	logger        *slog.Logger

	// retryDelay is overridable in tests to avoid real sleeps.
	retryDelay time.Duration
}

func NewSummarizer(gen Generator, commitCeiling int, callTimeout time.Duration, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		gen:           gen,
		commitCeiling: commitCeiling,
		callTimeout:   callTimeout,
		logger:        logger,
		retryDelay:    retryDelay,
	}
}

// Summarize produces a StandupReport for the event. The result is
// tagged with its source (model or fallback) rather than signalling
// model failure through an error.
func (s *Summarizer) Summarize(ctx context.Context, event model.PushEvent, team model.Team) model.StandupReport {
	heuristic := DetectBlockers(event.Commits)

	report := model.StandupReport{
		TeamID:      team.ID,
		GeneratedAt: time.Now().UTC(),
	}

	text, err := s.callModel(ctx, s.buildPrompt(event))
	if err != nil {
		s.logger.Warn("Model call exhausted, using fallback summary",
			"team_id", team.ID, "error", err)
		observability.SummaryFallback()
		report.Source = model.SourceFallback
		report.Summary = fallbackSummary(event)
		report.Blockers = heuristic
		return report
	}

	observability.SummaryFromModel()
	summary, next, modelBlockers := parseSections(text)
	if summary == "" {
		// A response with no recognizable summary section is treated
		// like any other malformed response.
		s.logger.Warn("Model response missing summary section, using fallback",
			"team_id", team.ID)
		observability.SummaryFallback()
		report.Source = model.SourceFallback
		report.Summary = fallbackSummary(event)
		report.Blockers = heuristic
		return report
	}

	report.Source = model.SourceModel
	report.Summary = summary
	report.NextSteps = next
	report.Blockers = mergeBlockers(heuristic, modelBlockers)
	return report
}

// callModel runs the bounded external call: timeout per attempt, one
// retry with backoff, nothing beyond that.
func (s *Summarizer) callModel(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return "", &apperrors.SummarizeError{Attempts: attempt - 1, Last: ctx.Err()}
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		text, err := s.gen.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", &apperrors.SummarizeError{Attempts: maxAttempts, Last: lastErr}
}

// buildPrompt lists author, message and timestamp per commit under a
// deterministic instruction template. When the batch exceeds the
// configured ceiling the oldest commits are truncated first to bound
// call cost and latency.
func (s *Summarizer) buildPrompt(event model.PushEvent) string {
	commits := event.Commits
	truncated := 0
	if len(commits) > s.commitCeiling {
		truncated = len(commits) - s.commitCeiling
		commits = commits[truncated:]
	}

	var b strings.Builder
	b.WriteString("You are writing a standup update for a development team.\n")
	fmt.Fprintf(&b, "Repository: %s (branch %s)\n", event.RepoName, event.Branch)
	if truncated > 0 {
		fmt.Fprintf(&b, "Note: %d older commits omitted from this batch.\n", truncated)
	}
	b.WriteString("Commits:\n")
	for _, c := range commits {
		fmt.Fprintf(&b, "- [%s] %s: %s\n",
			c.Timestamp.UTC().Format(time.RFC3339), c.Author, firstLine(c.Message))
	}
	b.WriteString("\nRespond in plain text with exactly three sections:\n")
	b.WriteString("SUMMARY: one short paragraph of what was done.\n")
	b.WriteString("NEXT STEPS: bullet lines starting with '- ', or 'none'.\n")
	b.WriteString("BLOCKERS: bullet lines starting with '- ', or 'none'.\n")
	return b.String()
}

// parseSections splits the model response into the three requested
// sections. Unrecognized leading text is ignored.
func parseSections(text string) (summary string, nextSteps, blockers []string) {
	section := ""
	var summaryLines []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case strings.HasPrefix(upper, "SUMMARY:"):
			section = "summary"
			if rest := strings.TrimSpace(trimmed[len("SUMMARY:"):]); rest != "" {
				summaryLines = append(summaryLines, rest)
			}
			continue
		case strings.HasPrefix(upper, "NEXT STEPS:"):
			section = "next"
			continue
		case strings.HasPrefix(upper, "BLOCKERS:"):
			section = "blockers"
			continue
		}

		if trimmed == "" || strings.EqualFold(trimmed, "none") {
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
		switch section {
		case "summary":
			summaryLines = append(summaryLines, trimmed)
		case "next":
			nextSteps = append(nextSteps, item)
		case "blockers":
			blockers = append(blockers, item)
		}
	}

	return strings.Join(summaryLines, " "), nextSteps, blockers
}

// fallbackSummary builds the deterministic non-AI summary: commit
// messages grouped by author, in commit order.
func fallbackSummary(event model.PushEvent) string {
	order := make([]string, 0)
	byAuthor := make(map[string][]string)
	for _, c := range event.Commits {
		if _, ok := byAuthor[c.Author]; !ok {
			order = append(order, c.Author)
		}
		byAuthor[c.Author] = append(byAuthor[c.Author], firstLine(c.Message))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pushed %d commit(s) to %s (%s).", len(event.Commits), event.RepoName, event.Branch)
	for _, author := range order {
		fmt.Fprintf(&b, " %s: %s.", author, strings.Join(byAuthor[author], "; "))
	}
	return b.String()
}
