package daily

import (
	"hash/fnv"
	"time"
)

// DefaultPrompts is used when no prompt list is configured.
var DefaultPrompts = []string{
	"Write a short poem about the changing seasons using only weather-related metaphors",
	"Explain quantum computing as if you're teaching a curious 10-year-old",
	"Describe the taste of your favorite food without naming any ingredients",
	"Write a motivational message for someone starting a difficult new job",
	"Create a brief story about a lost key that has magical properties",
	"Explain how social media has changed human communication using an ocean analogy",
	"Write a short dialogue between the sun and the moon discussing their daily routines",
	"Describe what freedom means using only sensory descriptions",
	"Write a brief letter from a houseplant to its owner explaining its needs",
	"Create a short story about a character who discovers they can speak to animals, but only on Tuesdays",
}

const (
	SelectionSequential = "sequential"
	SelectionRandom     = "random"
)

const dateLayout = "2006-01-02"

// Selector picks the prompt for a challenge date.
type Selector struct {
	prompts []string
	method  string
}

func NewSelector(prompts []string, method string) *Selector {
	if len(prompts) == 0 {
		prompts = DefaultPrompts
	}
	if method != SelectionRandom {
		method = SelectionSequential
	}
	return &Selector{prompts: prompts, method: method}
}

// PromptFor returns the prompt for day. Sequential selection cycles by day
// of month; random selection is seeded by the date so every player sees the
// same prompt.
func (s *Selector) PromptFor(day time.Time) string {
	var idx int
	switch s.method {
	case SelectionRandom:
		h := fnv.New32a()
		h.Write([]byte(day.Format(dateLayout)))
		idx = int(h.Sum32() % uint32(len(s.prompts)))
	default:
		idx = (day.Day() - 1) % len(s.prompts)
	}
	return s.prompts[idx]
}
