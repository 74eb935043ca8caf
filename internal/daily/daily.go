// Package daily runs the daily challenge: one prompt per calendar day in a
// fixed zone, shared generated content, and one scored submission per player.
package daily

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/game"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/generator"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
)

// FallbackContent is served, uncached, when the generator fails.
const FallbackContent = "Today's AI content could not be generated. Please try refreshing the page."

const maxPlayerIDLength = 128

// Challenge is the cached content for one date.
type Challenge struct {
	Date    string `json:"date"`
	Prompt  string `json:"prompt"`
	Content string `json:"content"`
}

// Today is what a player sees. Prompt and Score are set only after the
// player has submitted.
type Today struct {
	Date      string `json:"date"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
	Prompt    string `json:"prompt,omitempty"`
	Score     *int   `json:"score,omitempty"`
	// NextChallengeAt is the next midnight in the challenge zone.
	NextChallengeAt time.Time `json:"next_challenge_at"`
}

// Submission is returned after a daily guess.
type Submission struct {
	Date      string        `json:"date"`
	Score     int           `json:"score"`
	Prompt    string        `json:"prompt"`
	Feedback  game.Feedback `json:"feedback"`
	ShareText string        `json:"share_text"`
}

// Config holds the daily challenge settings.
type Config struct {
	Prompts        []string
	Selection      string
	UTCOffsetHours int
}

type Service struct {
	selector *Selector
	zone     *time.Location
	gen      generator.Generator
	content  *cache.Cache[Challenge]
	results  ResultStore
	judge    *game.Judge
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(cfg Config, gen generator.Generator, content *cache.Cache[Challenge], results ResultStore, judge *game.Judge) *Service {
	offset := cfg.UTCOffsetHours
	return &Service{
		selector: NewSelector(cfg.Prompts, cfg.Selection),
		zone:     time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600),
		gen:      gen,
		content:  content,
		results:  results,
		judge:    judge,
		logger:   logger.WithComponent("daily"),
		now:      time.Now,
	}
}

// Date returns today's challenge date.
func (s *Service) Date() string {
	return s.now().In(s.zone).Format(dateLayout)
}

// NextChallengeAt returns when the current challenge rolls over.
func (s *Service) NextChallengeAt() time.Time {
	day := s.now().In(s.zone)
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, s.zone)
}

// Challenge returns today's challenge, generating and caching the content on
// first use. Generator failures yield FallbackContent, which is not cached.
func (s *Service) Challenge(ctx context.Context) (Challenge, error) {
	day := s.now().In(s.zone)
	date := day.Format(dateLayout)
	prompt := s.selector.PromptFor(day)

	ch, _, err := s.content.GetOrCompute(ctx, date, func(ctx context.Context) (Challenge, bool, error) {
		content, err := s.gen.Complete(ctx, prompt)
		if err != nil {
			logger.FromContext(ctx).Error("daily content generation failed", "date", date, "error", err)
			return Challenge{Date: date, Prompt: prompt, Content: FallbackContent}, false, nil
		}
		s.logger.Info("daily content generated", "date", date)
		return Challenge{Date: date, Prompt: prompt, Content: strings.TrimSpace(content)}, true, nil
	})
	if err != nil {
		return Challenge{}, err
	}
	return ch, nil
}

// Today returns today's content and, for a player who has already
// submitted, the prompt and their score.
func (s *Service) Today(ctx context.Context, playerID string) (Today, error) {
	ch, err := s.Challenge(ctx)
	if err != nil {
		return Today{}, err
	}
	view := Today{Date: ch.Date, Content: ch.Content, NextChallengeAt: s.NextChallengeAt()}
	if playerID == "" {
		return view, nil
	}
	res, err := s.results.Get(ctx, ch.Date, playerID)
	switch {
	case err == nil:
		view.Completed = true
		view.Prompt = ch.Prompt
		view.Score = &res.Score
	case apperrors.Is(err, apperrors.ErrResultNotFound):
	default:
		return Today{}, err
	}
	return view, nil
}

// Submit scores guess against today's prompt and records the player's one
// result for the day.
func (s *Service) Submit(ctx context.Context, playerID, guess string) (Submission, error) {
	if err := validatePlayerID(playerID); err != nil {
		return Submission{}, err
	}
	if strings.TrimSpace(guess) == "" {
		return Submission{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "guess must not be empty")
	}

	ch, err := s.Challenge(ctx)
	if err != nil {
		return Submission{}, err
	}
	if _, err := s.results.Get(ctx, ch.Date, playerID); err == nil {
		return Submission{}, alreadyCompleted(ch.Date)
	} else if !apperrors.Is(err, apperrors.ErrResultNotFound) {
		return Submission{}, err
	}

	// Concurrent submissions can both pass the check above; only the one whose
	// Save wins is recorded.
	eval := s.judge.Score(ch.Prompt, guess, false)
	if err := s.results.Save(ctx, Result{
		Date:      ch.Date,
		PlayerID:  playerID,
		Score:     eval.Score,
		Guess:     guess,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		return Submission{}, err
	}
	s.judge.Record(ctx, analytics.ModeDaily, "", eval)

	logger.FromContext(ctx).Info("daily challenge submitted", "date", ch.Date, "score", eval.Score)
	return Submission{
		Date:      ch.Date,
		Score:     eval.Score,
		Prompt:    ch.Prompt,
		Feedback:  eval.Feedback,
		ShareText: ShareText(ch.Date, eval.Score),
	}, nil
}

// Result returns the player's stored result for date, defaulting to today.
func (s *Service) Result(ctx context.Context, playerID, date string) (Result, error) {
	if err := validatePlayerID(playerID); err != nil {
		return Result{}, err
	}
	if date == "" {
		date = s.Date()
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return Result{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "date must be YYYY-MM-DD, got %q", date)
	}
	return s.results.Get(ctx, date, playerID)
}

// ShareText formats the shareable summary of a daily score.
func ShareText(date string, score int) string {
	emoji := "🤔"
	switch {
	case score > 80:
		emoji = "🌟"
	case score > 60:
		emoji = "✨"
	case score > 40:
		emoji = "👍"
	case score > 20:
		emoji = "🙂"
	}
	return fmt.Sprintf("Prompted Daily Challenge (%s) %s\nMy similarity score: %d%%\nTry it yourself at promptedai.vercel.app/daily", date, emoji, score)
}

func validatePlayerID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "player id is required")
	}
	if len(id) > maxPlayerIDLength {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "player id exceeds %d characters", maxPlayerIDLength)
	}
	return nil
}
