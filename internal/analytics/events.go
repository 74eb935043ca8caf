package analytics

import "time"

type EventType string

const (
	EventGuess EventType = "guess"
)

// Mode identifies which game produced a guess.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeDaily    Mode = "daily"
	ModeScore    Mode = "score"
)

// GuessEvent is published for every scored guess.
type GuessEvent struct {
	Type            EventType `json:"type"`
	Mode            Mode      `json:"mode"`
	Difficulty      string    `json:"difficulty,omitempty"`
	Score           int       `json:"score"`
	ReferenceTokens int       `json:"reference_tokens"`
	CandidateTokens int       `json:"candidate_tokens"`
	LatencyMs       int64     `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id,omitempty"`
}

// Tracker accepts guess events without blocking the caller.
type Tracker interface {
	Track(event GuessEvent)
}

// NopTracker discards events.
type NopTracker struct{}

func (NopTracker) Track(GuessEvent) {}
