package news

import (
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
)

type Category string

const (
	CategoryAll      Category = "all"
	CategoryOpenAI   Category = "openai"
	CategoryGoogle   Category = "google"
	CategoryMeta     Category = "meta"
	CategoryResearch Category = "research"
	CategoryStartups Category = "startups"
)

var categoryKeywords = map[Category][]string{
	CategoryOpenAI:   {"OpenAI", "ChatGPT", "GPT-4", "DALL-E", "Sam Altman"},
	CategoryGoogle:   {"Google AI", "Google DeepMind", "Gemini AI", "Google Bard", "PaLM", "Anthropic Claude"},
	CategoryMeta:     {"Meta AI", "Facebook AI", "Llama model", "Meta artificial intelligence", "Meta LLM"},
	CategoryResearch: {"AI research", "machine learning research", "AI paper", "AI breakthrough", "neural network research"},
	CategoryStartups: {"AI startup", "AI company", "AI funding", "AI venture", "AI series", "AI raised"},
	CategoryAll:      {"artificial intelligence", "machine learning", "neural network", "deep learning", "language model", "AI model"},
}

var categoryLabels = map[Category]string{
	CategoryOpenAI:   "OpenAI",
	CategoryGoogle:   "Google",
	CategoryMeta:     "Meta",
	CategoryResearch: "Research",
	CategoryStartups: "Startups",
	CategoryAll:      "General AI",
}

// ParseCategory accepts a known category name; empty means all.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryAll, nil
	}
	if _, ok := categoryKeywords[c]; !ok {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown news category %q", s)
	}
	return c, nil
}

// Keywords returns the search keywords for c.
func (c Category) Keywords() []string {
	if kw, ok := categoryKeywords[c]; ok {
		return kw
	}
	return categoryKeywords[CategoryAll]
}

// Label is the display name of c.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryAll]
}

type categoryRule struct {
	label string
	terms []string
}

// categoryRules are checked in order; the first match wins.
var categoryRules = []categoryRule{
	{"OpenAI", []string{"openai", "chatgpt", "gpt-4", "dall-e", "sam altman"}},
	{"Google", []string{"google", "deepmind", "gemini", "bard"}},
	{"Meta", []string{"meta", "facebook", "llama"}},
	{"Startups", []string{"startup", "funding", "million", "venture", "raised"}},
	{"Research", []string{"research", "study", "paper", "university"}},
}

// categorize assigns a display category from the article text, falling back
// to the requested category's label.
func categorize(title, body, description string, requested Category) string {
	text := strings.ToLower(title + " " + body + " " + description)
	for _, rule := range categoryRules {
		for _, term := range rule.terms {
			if strings.Contains(text, term) {
				return rule.label
			}
		}
	}
	return requested.Label()
}

var violentWords = []string{
	"killing", "murder", "murdered", "murdering", "shooting", "shot", "stabbed", "stabbing",
	"dead", "death", "homicide", "suicide", "assault", "abuse", "abused", "abusing",
	"victim", "victims", "blood", "beaten", "beating", "violence", "violent",
	"terror", "terrorist", "terrorism", "execute", "executed", "execution",
	"slain", "slaying", "massacre", "massacred", "slaughter", "slaughtered",
}

// isViolent is a case-insensitive substring check, so "shot" also matches
// "screenshot".
func isViolent(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range violentWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
