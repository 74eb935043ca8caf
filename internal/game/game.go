// Package game runs practice rounds: a generated hidden prompt, the AI
// content it produced, and a single scored guess.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/generator"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/tracing"
)

// Round is a stored practice round. Prompt stays server-side until revealed.
type Round struct {
	ID         string               `json:"id"`
	Prompt     string               `json:"prompt"`
	Content    string               `json:"content"`
	Difficulty generator.Difficulty `json:"difficulty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// RoundView is what a player sees before guessing.
type RoundView struct {
	ID          string               `json:"id"`
	Content     string               `json:"content"`
	Difficulty  generator.Difficulty `json:"difficulty"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"created_at"`
}

// View hides the prompt.
func (r Round) View() RoundView {
	return RoundView{
		ID:          r.ID,
		Content:     r.Content,
		Difficulty:  r.Difficulty,
		Description: r.Difficulty.Description(),
		CreatedAt:   r.CreatedAt,
	}
}

// GuessResult reveals the prompt alongside the score.
type GuessResult struct {
	RoundID  string   `json:"round_id"`
	Score    int      `json:"score"`
	Prompt   string   `json:"prompt"`
	Guess    string   `json:"guess"`
	Feedback Feedback `json:"feedback"`
}

type Service struct {
	gen    generator.Generator
	rounds RoundStore
	judge  *Judge
	logger *slog.Logger
	now    func() time.Time
}

func NewService(gen generator.Generator, rounds RoundStore, judge *Judge) *Service {
	return &Service{
		gen:    gen,
		rounds: rounds,
		judge:  judge,
		logger: logger.WithComponent("game"),
		now:    time.Now,
	}
}

// NewRound generates a hidden prompt, then the content for it, and stores
// the round.
func (s *Service) NewRound(ctx context.Context, difficulty generator.Difficulty) (RoundView, error) {
	ctx, span := tracing.StartSpan(ctx, "game.new_round", logger.RequestID(ctx))
	span.SetAttr("difficulty", string(difficulty))
	defer span.Log()

	promptCtx, promptSpan := tracing.StartChildSpan(ctx, "generate.prompt")
	prompt, err := generator.PromptFor(promptCtx, s.gen, difficulty)
	promptSpan.EndWithError(err)
	if err != nil {
		span.EndWithError(err)
		return RoundView{}, fmt.Errorf("generating prompt: %w", err)
	}

	contentCtx, contentSpan := tracing.StartChildSpan(ctx, "generate.content")
	content, err := s.gen.Complete(contentCtx, prompt)
	contentSpan.EndWithError(err)
	if err != nil {
		span.EndWithError(err)
		return RoundView{}, fmt.Errorf("generating content: %w", err)
	}

	round := Round{
		ID:         uuid.NewString(),
		Prompt:     prompt,
		Content:    strings.TrimSpace(content),
		Difficulty: difficulty,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.rounds.Save(ctx, round); err != nil {
		span.EndWithError(err)
		return RoundView{}, err
	}
	span.SetAttr("round_id", round.ID)
	span.End()

	logger.FromContext(ctx).Info("round created", "round_id", round.ID, "difficulty", difficulty)
	return round.View(), nil
}

// Guess scores guess against the round's prompt. A round can be guessed once.
func (s *Service) Guess(ctx context.Context, roundID, guess string) (GuessResult, error) {
	if strings.TrimSpace(guess) == "" {
		return GuessResult{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "guess must not be empty")
	}
	ctx = logger.With(ctx, "round_id", roundID)
	round, err := s.rounds.Get(ctx, roundID)
	if err != nil {
		return GuessResult{}, err
	}
	first, err := s.rounds.MarkRevealed(ctx, roundID)
	if err != nil {
		return GuessResult{}, err
	}
	if !first {
		return GuessResult{}, apperrors.Newf(apperrors.ErrRoundRevealed, http.StatusConflict, "round %s was already guessed", roundID)
	}

	eval := s.judge.Evaluate(ctx, analytics.ModePractice, string(round.Difficulty), round.Prompt, guess, false)
	logger.FromContext(ctx).Info("round guessed", "score", eval.Score, "tier", eval.Feedback.Tier)
	return GuessResult{
		RoundID:  roundID,
		Score:    eval.Score,
		Prompt:   round.Prompt,
		Guess:    guess,
		Feedback: eval.Feedback,
	}, nil
}
