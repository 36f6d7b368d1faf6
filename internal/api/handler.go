// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitsync-standup/internal/aggregate"
	apperrors "gitsync-standup/internal/errors"
	"gitsync-standup/internal/github"
	"gitsync-standup/internal/normalize"
	"gitsync-standup/internal/pipeline"
	"gitsync-standup/internal/registry"
	"gitsync-standup/internal/telegram"
)

const (
	defaultDashboardDays = 7
	dayFormat            = "2006-01-02"
)

// Handler is the container for API dependencies.
type Handler struct {
	pipeline    *pipeline.Pipeline
	registry    *registry.Registry
	vault       *registry.Vault
	aggregator  *aggregate.Aggregator
	chat        *telegram.Client
	gh          *github.Client
	appBaseURL  string
	botUsername string
	logger      *slog.Logger
}

// NewRouter creates and configures a new chi router with all routes.
func NewRouter(
	pl *pipeline.Pipeline,
	reg *registry.Registry,
	vault *registry.Vault,
	agg *aggregate.Aggregator,
	chat *telegram.Client,
	gh *github.Client,
	appBaseURL, botUsername string,
	logger *slog.Logger,
) http.Handler {
	h := &Handler{
		pipeline:    pl,
		registry:    reg,
		vault:       vault,
		aggregator:  agg,
		chat:        chat,
		gh:          gh,
		appBaseURL:  appBaseURL,
		botUsername: botUsername,
		logger:      logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/webhook/{teamID}", h.handleWebhook)
	r.Post("/telegram/commands", h.handleTelegramCommand)
	r.Get("/dashboard/{teamID}", h.handleDashboard)

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "gitsync-standup",
	})
}

// handleWebhook runs the standup pipeline for one push delivery.
// POST /webhook/{teamID}?secret={token}
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	secret := r.URL.Query().Get("secret")

	var payload normalize.PushPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed push payload")
		return
	}

	outcome, err := h.pipeline.Process(r.Context(), teamID, secret, payload)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":    string(outcome.Status),
			"record_id": outcome.RecordID,
		})
	case apperrors.IsAuthError(err):
		respondWithError(w, http.StatusUnauthorized, "Invalid team or secret")
	case errors.Is(err, apperrors.ErrEmptyPush):
		// No commits is not an error to the sender: no record, no report.
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		// Persistence failures land here; a 5xx makes GitHub redeliver
		// and the idempotency key absorbs the replay.
		h.logger.Error("Pipeline failure", "team_id", teamID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// handleDashboard returns the day-bucketed velocity series.
// GET /dashboard/{teamID}?secret=...&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	secret := r.URL.Query().Get("secret")

	if _, err := h.registry.Resolve(r.Context(), teamID, secret); err != nil {
		if apperrors.IsAuthError(err) {
			respondWithError(w, http.StatusUnauthorized, "Invalid dashboard key")
			return
		}
		h.logger.Error("Failed to resolve team", "team_id", teamID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.aggregator.Aggregate(r.Context(), teamID, from, to)
	if err != nil {
		h.logger.Error("Failed to aggregate velocity", "team_id", teamID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	recent, err := h.aggregator.Recent(r.Context(), teamID, 10)
	if err != nil {
		h.logger.Error("Failed to load recent activity", "team_id", teamID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"team_id": teamID,
		"from":    from.Format(dayFormat),
		"to":      to.Format(dayFormat),
		"series":  series,
		"recent":  recent,
	})
}

// parseRange interprets the optional from/to query params, defaulting to
// the trailing week ending today.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	now := time.Now()
	to := now
	from := now.AddDate(0, 0, -(defaultDashboardDays - 1))

	var err error
	if toStr != "" {
		if to, err = time.Parse(dayFormat, toStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("'to' must be formatted YYYY-MM-DD")
		}
		from = to.AddDate(0, 0, -(defaultDashboardDays - 1))
	}
	if fromStr != "" {
		if from, err = time.Parse(dayFormat, fromStr); err != nil {
			return time.Time{}, time.Time{}, errors.New("'from' must be formatted YYYY-MM-DD")
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("'to' must not be before 'from'")
	}
	return from, to, nil
}
