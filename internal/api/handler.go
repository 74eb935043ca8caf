// Package api exposes scoring, practice rounds, the daily challenge, news and
// analytics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/daily"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/game"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/generator"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/news"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
)

// PlayerIDHeader identifies a daily challenge player.
const PlayerIDHeader = "X-Player-ID"

const maxBodyBytes = 64 << 10

type RoundService interface {
	NewRound(ctx context.Context, difficulty generator.Difficulty) (game.RoundView, error)
	Guess(ctx context.Context, roundID, guess string) (game.GuessResult, error)
}

type DailyService interface {
	Today(ctx context.Context, playerID string) (daily.Today, error)
	Submit(ctx context.Context, playerID, guess string) (daily.Submission, error)
	Result(ctx context.Context, playerID, date string) (daily.Result, error)
}

type NewsService interface {
	Fetch(ctx context.Context, category news.Category, page, pageSize int) (news.Page, error)
}

// Handler implements the public HTTP endpoints.
type Handler struct {
	judge     *game.Judge
	rounds    RoundService
	daily     DailyService
	news      NewsService
	analytics analytics.StatsSource
	logger    *slog.Logger
}

func NewHandler(judge *game.Judge, rounds RoundService, dailySvc DailyService, newsSvc NewsService, stats analytics.StatsSource) *Handler {
	return &Handler{
		judge:     judge,
		rounds:    rounds,
		daily:     dailySvc,
		news:      newsSvc,
		analytics: stats,
		logger:    slog.Default().With("component", "api-handler"),
	}
}

// Score compares two strings directly.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := ValidateScoreRequest(&req); err != nil {
		h.writeValidation(w, err)
		return
	}
	eval := h.judge.Evaluate(r.Context(), analytics.ModeScore, "", req.Reference, req.Candidate, req.Breakdown)
	h.writeJSON(w, http.StatusOK, eval)
}

// CreateRound starts a practice round.
func (h *Handler) CreateRound(w http.ResponseWriter, r *http.Request) {
	var req RoundRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	if err := ValidateRoundRequest(&req); err != nil {
		h.writeValidation(w, err)
		return
	}
	view, err := h.rounds.NewRound(r.Context(), generator.ParseDifficulty(req.Difficulty))
	if err != nil {
		h.writeServiceError(w, r, "round creation failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// GuessRound submits the one guess for a practice round.
func (h *Handler) GuessRound(w http.ResponseWriter, r *http.Request) {
	var req GuessRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := ValidateGuessRequest(&req); err != nil {
		h.writeValidation(w, err)
		return
	}
	res, err := h.rounds.Guess(r.Context(), r.PathValue("id"), req.Guess)
	if err != nil {
		h.writeServiceError(w, r, "guess failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// Daily returns today's challenge content.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	player := r.Header.Get(PlayerIDHeader)
	r = r.WithContext(logger.With(r.Context(), "player_id", player))
	today, err := h.daily.Today(r.Context(), player)
	if err != nil {
		h.writeServiceError(w, r, "daily challenge failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, today)
}

// DailyGuess submits the player's daily guess.
func (h *Handler) DailyGuess(w http.ResponseWriter, r *http.Request) {
	var req GuessRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := ValidateGuessRequest(&req); err != nil {
		h.writeValidation(w, err)
		return
	}
	player := r.Header.Get(PlayerIDHeader)
	r = r.WithContext(logger.With(r.Context(), "player_id", player))
	sub, err := h.daily.Submit(r.Context(), player, req.Guess)
	if err != nil {
		h.writeServiceError(w, r, "daily submission failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

// DailyResult returns a stored daily result.
func (h *Handler) DailyResult(w http.ResponseWriter, r *http.Request) {
	player := r.Header.Get(PlayerIDHeader)
	r = r.WithContext(logger.With(r.Context(), "player_id", player))
	res, err := h.daily.Result(r.Context(), player, r.URL.Query().Get("date"))
	if err != nil {
		h.writeServiceError(w, r, "daily result lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// News returns a page of AI news.
func (h *Handler) News(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, err := news.ParseCategory(q.Get("category"))
	if err != nil {
		h.writeServiceError(w, r, "news request rejected", err)
		return
	}
	page, ok := h.intParam(w, q.Get("page"), "page", 1)
	if !ok {
		return
	}
	pageSize, ok := h.intParam(w, q.Get("pageSize"), "pageSize", 0)
	if !ok {
		return
	}
	result, err := h.news.Fetch(r.Context(), category, page, pageSize)
	if err != nil {
		h.writeServiceError(w, r, "news request failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Analytics returns aggregated guess statistics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	analytics.NewHandler(h.analytics).Stats(w, r)
}

func (h *Handler) intParam(w http.ResponseWriter, raw, name string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": map[string]string{name: name + " must be a non-negative integer"},
		})
		return 0, false
	}
	return v, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			h.writeError(w, http.StatusBadRequest, "request body is required")
		default:
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		}
		return false
	}
	return true
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", status)
	} else {
		log.Info(msg, "error", err, "status_code", status)
	}
	h.writeError(w, status, apperrors.PublicMessage(err))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
