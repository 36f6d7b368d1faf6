// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitsync-standup/internal/database"
	"gitsync-standup/internal/database/mocks"
	apperrors "gitsync-standup/internal/errors"
	"gitsync-standup/internal/github"
	"gitsync-standup/internal/model"
	"gitsync-standup/internal/normalize"
	"gitsync-standup/internal/registry"
	"gitsync-standup/internal/summarize"
	"gitsync-standup/internal/telegram"
)

// countingGenerator records calls and either fails or echoes a fixed
// model response.
type countingGenerator struct {
	calls    int
	fail     bool
	response string
}

func (g *countingGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.calls++
	if g.fail {
		return "", fmt.Errorf("model unavailable")
	}
	return g.response, nil
}

// chatRecorder is an httptest Telegram endpoint that forwards every
// delivered message body to a channel so tests can wait on async sends.
type chatRecorder struct {
	srv      *httptest.Server
	messages chan string
}

func newChatRecorder(t *testing.T) *chatRecorder {
	rec := &chatRecorder{messages: make(chan string, 8)}
	rec.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(body, &req)
		rec.messages <- req.Text
		fmt.Fprint(w, `{"ok":true}`)
	}))
	t.Cleanup(rec.srv.Close)
	return rec
}

func (r *chatRecorder) waitForMessage(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-r.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no chat message delivered")
		return ""
	}
}

func (r *chatRecorder) assertNoMessage(t *testing.T) {
	t.Helper()
	select {
	case msg := <-r.messages:
		t.Fatalf("unexpected chat message: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

type fixture struct {
	db       *mocks.Querier
	gen      *countingGenerator
	chat     *chatRecorder
	pipeline *Pipeline
}

func newFixture(t *testing.T, gen *countingGenerator) *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := new(mocks.Querier)

	vault, err := registry.NewVault(db, nil, logger) // token enrichment off
	require.NoError(t, err)

	summarizer := summarize.NewSummarizer(gen, 20, time.Second, logger)
	chat := newChatRecorder(t)
	chatClient := telegram.NewClient("bot-token", logger).WithBaseURL(chat.srv.URL)

	p := New(
		db,
		registry.New(db, logger),
		vault,
		summarizer,
		chatClient,
		github.NewClient(logger),
		time.UTC,
		2*time.Second,
		logger,
	)
	return &fixture{db: db, gen: gen, chat: chat, pipeline: p}
}

func storedTeam() database.Team {
	return database.Team{TeamID: "-100123", Secret: "team-secret"}
}

func twoCommitPayload() normalize.PushPayload {
	// Deliberately out of order: the earlier commit appears last.
	return normalize.PushPayload{
		Ref:        "refs/heads/main",
		Repository: normalize.PayloadRepo{FullName: "acme/widgets"},
		Pusher:     normalize.PayloadUser{Name: "alice"},
		Commits: []normalize.PayloadCommit{
			{ID: "sha-b", Message: "WIP feature flags", Author: normalize.PayloadUser{Name: "bob"}, Timestamp: "2024-06-01T10:00:00Z"},
			{ID: "sha-a", Message: "fix bug in parser", Author: normalize.PayloadUser{Name: "alice"}, Timestamp: "2024-06-01T09:00:00Z"},
		},
	}
}

func TestProcess_RejectsBadSecret(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil).Once()

	_, err := f.pipeline.Process(context.Background(), "-100123", "wrong-secret", twoCommitPayload())
	assert.ErrorIs(t, err, apperrors.ErrSecretMismatch)
	assert.Zero(t, f.gen.calls, "rejected pushes never reach the summarizer")
	f.db.AssertNotCalled(t, "InsertActivity", mock.Anything, mock.Anything)
	f.chat.assertNoMessage(t)
}

func TestProcess_EmptyPushShortCircuits(t *testing.T) {
	f := newFixture(t, &countingGenerator{})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil).Once()

	payload := normalize.PushPayload{
		Ref:        "refs/heads/main",
		Repository: normalize.PayloadRepo{FullName: "acme/widgets"},
	}

	_, err := f.pipeline.Process(context.Background(), "-100123", "team-secret", payload)
	assert.ErrorIs(t, err, apperrors.ErrEmptyPush)
	assert.Zero(t, f.gen.calls, "empty pushes never reach the summarizer")
	f.db.AssertNotCalled(t, "InsertActivity", mock.Anything, mock.Anything)
	f.chat.assertNoMessage(t)
}

func TestProcess_FallbackReportStillPersistsAndDelivers(t *testing.T) {
	f := newFixture(t, &countingGenerator{fail: true})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil).Once()

	var persisted database.InsertActivityParams
	f.db.On("InsertActivity", mock.Anything, mock.MatchedBy(func(arg database.InsertActivityParams) bool {
		persisted = arg
		return arg.TeamID == "-100123"
	})).Return(int64(42), nil).Once()

	out, err := f.pipeline.Process(context.Background(), "-100123", "team-secret", twoCommitPayload())
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, out.Status)
	assert.Equal(t, int64(42), out.RecordID)

	// Record shape.
	assert.Equal(t, "alice", persisted.Author, "pusher, not commit author")
	assert.Equal(t, "acme/widgets", persisted.RepoName)
	assert.Equal(t, "main", persisted.Branch)
	assert.Equal(t, int32(2), persisted.CommitCount)
	assert.Equal(t, int32(model.LinesUnknown), persisted.LinesAdded)
	assert.Equal(t, int32(model.LinesUnknown), persisted.LinesRemoved)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), persisted.EventAt,
		"event time is the newest commit's timestamp")

	var counts map[string]int
	require.NoError(t, json.Unmarshal(persisted.AuthorCounts, &counts))
	assert.Equal(t, map[string]int{"alice": 1, "bob": 1}, counts)

	// The delivered message carries the fallback summary and the
	// heuristic blocker from the WIP commit.
	msg := f.chat.waitForMessage(t)
	assert.Contains(t, msg, "Standup Summary")
	assert.Contains(t, msg, "2 commit(s)")
	assert.Contains(t, msg, "WIP feature flags")
	assert.Contains(t, msg, "without AI assistance")
	f.db.AssertExpectations(t)
}

func TestProcess_BatchKeyIsOrderInsensitive(t *testing.T) {
	f := newFixture(t, &countingGenerator{fail: true})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil)

	var keys []string
	f.db.On("InsertActivity", mock.Anything, mock.MatchedBy(func(arg database.InsertActivityParams) bool {
		keys = append(keys, arg.BatchKey)
		return true
	})).Return(int64(1), nil).Twice()

	first := twoCommitPayload()
	second := twoCommitPayload()
	second.Commits[0], second.Commits[1] = second.Commits[1], second.Commits[0]

	_, err := f.pipeline.Process(context.Background(), "-100123", "team-secret", first)
	require.NoError(t, err)
	_, err = f.pipeline.Process(context.Background(), "-100123", "team-secret", second)
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1], "redeliveries hash to the same batch key")
}

func TestProcess_DuplicateDeliverySkipsChat(t *testing.T) {
	f := newFixture(t, &countingGenerator{
		response: "SUMMARY: did things.\nNEXT STEPS:\nnone\nBLOCKERS:\nnone\n",
	})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil).Once()
	f.db.On("InsertActivity", mock.Anything, mock.Anything).Return(int64(0), pgx.ErrNoRows).Once()
	f.db.On("GetActivityByBatchKey", mock.Anything, mock.MatchedBy(func(arg database.GetActivityByBatchKeyParams) bool {
		return arg.TeamID == "-100123" && arg.BatchKey != ""
	})).Return(database.Activity{ID: 17}, nil).Once()

	out, err := f.pipeline.Process(context.Background(), "-100123", "team-secret", twoCommitPayload())
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, out.Status)
	assert.Equal(t, int64(17), out.RecordID)
	f.chat.assertNoMessage(t)
	f.db.AssertExpectations(t)
}

func TestProcess_PersistFailurePropagates(t *testing.T) {
	f := newFixture(t, &countingGenerator{
		response: "SUMMARY: did things.\nNEXT STEPS:\nnone\nBLOCKERS:\nnone\n",
	})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil).Once()
	f.db.On("InsertActivity", mock.Anything, mock.Anything).
		Return(int64(0), fmt.Errorf("connection lost")).Once()

	_, err := f.pipeline.Process(context.Background(), "-100123", "team-secret", twoCommitPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting activity")
	f.chat.assertNoMessage(t)
}

func TestProcess_ModelSummaryDelivered(t *testing.T) {
	f := newFixture(t, &countingGenerator{
		response: "SUMMARY: Parser bug fixed; feature-flag work continues.\n" +
			"NEXT STEPS:\n- land the flag rollout\n" +
			"BLOCKERS:\nnone\n",
	})
	f.db.On("GetTeamByID", mock.Anything, "-100123").Return(storedTeam(), nil).Once()
	f.db.On("InsertActivity", mock.Anything, mock.MatchedBy(func(arg database.InsertActivityParams) bool {
		return arg.Summary == "Parser bug fixed; feature-flag work continues."
	})).Return(int64(5), nil).Once()

	out, err := f.pipeline.Process(context.Background(), "-100123", "team-secret", twoCommitPayload())
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, out.Status)

	msg := f.chat.waitForMessage(t)
	assert.Contains(t, msg, "Parser bug fixed")
	assert.Contains(t, msg, "land the flag rollout")
	// The WIP commit's heuristic blocker rides along even though the
	// model reported none.
	assert.Contains(t, msg, "WIP feature flags")
	assert.NotContains(t, msg, "without AI assistance")
}
