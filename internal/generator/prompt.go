package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Difficulty controls how constrained a generated prompt is.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty maps s to a Difficulty, defaulting to Medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case Easy:
		return Easy
	case Hard:
		return Hard
	default:
		return Medium
	}
}

// Description is the player-facing summary of the difficulty.
func (d Difficulty) Description() string {
	switch d {
	case Easy:
		return "Simple prompts with straightforward instructions."
	case Hard:
		return "Complex prompts with multiple constraints."
	default:
		return "Moderately complex prompts with a few constraints."
	}
}

func (d Difficulty) guidance() string {
	switch d {
	case Easy:
		return "Keep the prompt short and direct with a single simple constraint. A casual reader should be able to guess it after seeing the AI's response."
	case Hard:
		return "Include 3-4 constraints, some of them subtle, and approach the topic from an unusual angle. It should take real effort to reconstruct the prompt from the AI's response."
	default:
		return "Keep the prompt specific with 2-3 constraints maximum. Avoid overly simple or vague prompts. The goal is to create a prompt that would take someone a few thoughtful moments to guess after seeing the AI's response."
	}
}

// Styles are the tones a generated prompt is asked to take.
var Styles = []string{
	"Clever and witty",
	"Professional and nuanced",
	"Thoughtful reflection",
	"Technical explanation with an analogy",
	"Creative story starter",
	"Thought-provoking opinion question",
	"Detailed how-to instruction",
}

const promptTemplate = `Generate a focused writing prompt for a chatbot that will result in a response of 1-3 paragraphs maximum. The prompt should be challenging but still possible to reverse-engineer from the output.

Using this style: %s

%s

Examples of good prompts:
- "Write about a cat who secretly works as a jazz musician at night"
- "Explain how cloud computing works by comparing it to a library system"
- "Write a motivational message for astronauts on their first day of training"

You should only respond with the one prompt itself, nothing else.`

// PromptDirective builds the instruction that asks the model for a hidden prompt.
func PromptDirective(d Difficulty, style string) string {
	return fmt.Sprintf(promptTemplate, style, d.guidance())
}

// PromptFor asks gen for a new hidden prompt in a random style.
func PromptFor(ctx context.Context, gen Generator, d Difficulty) (string, error) {
	style := Styles[rand.IntN(len(Styles))]
	raw, err := gen.Complete(ctx, PromptDirective(d, style))
	if err != nil {
		return "", err
	}
	prompt := cleanPrompt(raw)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", errEmptyCompletion)
	}
	return prompt, nil
}

// cleanPrompt strips surrounding whitespace, quotes and a leading "Prompt:" label.
func cleanPrompt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 7 && strings.EqualFold(s[:7], "prompt:") {
		s = strings.TrimSpace(s[7:])
	}
	return strings.TrimSpace(strings.Trim(s, "\"'“”`"))
}
