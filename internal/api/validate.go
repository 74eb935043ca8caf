package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds reference, candidate and guess text, in characters.
const MaxTextLength = 2000

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

type ScoreRequest struct {
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	Breakdown bool   `json:"breakdown"`
}

type RoundRequest struct {
	Difficulty string `json:"difficulty"`
}

type GuessRequest struct {
	Guess string `json:"guess"`
}

// ValidateScoreRequest checks lengths only: empty strings are valid input to
// the scorer.
func ValidateScoreRequest(req *ScoreRequest) error {
	errs := make(map[string]string)
	checkLength(errs, "reference", req.Reference)
	checkLength(errs, "candidate", req.Candidate)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func ValidateGuessRequest(req *GuessRequest) error {
	errs := make(map[string]string)
	if strings.TrimSpace(req.Guess) == "" {
		errs["guess"] = "guess is required"
	} else {
		checkLength(errs, "guess", req.Guess)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func ValidateRoundRequest(req *RoundRequest) error {
	switch strings.ToLower(strings.TrimSpace(req.Difficulty)) {
	case "", "easy", "medium", "hard":
		return nil
	}
	return &ValidationError{Fields: map[string]string{"difficulty": "difficulty must be easy, medium or hard"}}
}

func checkLength(errs map[string]string, field, value string) {
	if utf8.RuneCountInString(value) > MaxTextLength {
		errs[field] = fmt.Sprintf("%s must be at most %d characters", field, MaxTextLength)
	}
}
