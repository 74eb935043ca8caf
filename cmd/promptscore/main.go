// Command promptscore scores a guessed prompt against a reference prompt from
// the terminal, and can ask the configured model for a fresh prompt.
//
// Usage:
//
//	promptscore score "the cat sat on the mat" "the cat sat on the rug"
//	promptscore score --json "dog bites man" "man bites dog"
//	promptscore generate --difficulty hard
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/game"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/generator"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/resilience"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "promptscore",
		Usage:     "Score prompt guesses the way the game does",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "score",
				Usage:     "Score CANDIDATE against REFERENCE",
				ArgsUsage: "REFERENCE CANDIDATE",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output the full breakdown as JSON",
					},
					&cli.Float64Flag{
						Name:  "exponent",
						Usage: "Override the score curve exponent",
					},
				},
				Action: scoreCommand,
			},
			{
				Name:  "generate",
				Usage: "Generate a prompt with the configured model",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "difficulty",
						Aliases: []string{"d"},
						Value:   "medium",
						Usage:   "easy, medium or hard",
					},
				},
				Action: generateCommand,
			},
		},
	}
}

func scoreCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("score needs exactly two arguments: REFERENCE CANDIDATE")
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	exponent := cfg.Scoring.CurveExponent
	if c.IsSet("exponent") {
		exponent = c.Float64("exponent")
		if exponent <= 0 {
			return fmt.Errorf("exponent must be positive, got %v", exponent)
		}
	}
	scorer := similarity.New(
		similarity.WithScoringConfig(cfg.Scoring),
		similarity.WithCurveExponent(exponent),
	)

	bd := scorer.Breakdown(c.Args().Get(0), c.Args().Get(1))
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(bd)
	}

	fb := game.FeedbackFor(bd.Score)
	w := c.App.Writer
	fmt.Fprintf(w, "Score: %d (%s)\n", bd.Score, fb.Tier)
	fmt.Fprintf(w, "%s\n\n", fb.Message)
	fmt.Fprintf(w, "  bm25           %.3f\n", bd.BM25)
	fmt.Fprintf(w, "  jaccard        %.3f\n", bd.Jaccard)
	fmt.Fprintf(w, "  ngram          %.3f\n", bd.NGram)
	fmt.Fprintf(w, "  edit distance  %.3f\n", bd.EditDistance)
	fmt.Fprintf(w, "  positional     %.3f\n", bd.Positional)
	fmt.Fprintf(w, "  length ratio   %.3f\n", bd.LengthRatio)
	fmt.Fprintf(w, "  structure      %.3f\n", bd.Structure)
	fmt.Fprintf(w, "  combined       %.3f -> %.3f\n", bd.Combined, bd.Curved)
	return nil
}

func generateCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	logger.Setup("warn", "text")

	gen := generator.NewOpenAI(generator.Config{
		APIKey:  cfg.Generator.APIKey,
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
		Timeout: cfg.Generator.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Generator.MaxAttempts,
			InitialDelay: cfg.Generator.InitialBackoff,
		},
	})
	prompt, err := generator.PromptFor(c.Context, gen, generator.ParseDifficulty(c.String("difficulty")))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, prompt)
	return nil
}
