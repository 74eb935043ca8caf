package game

// Tier buckets a score for player feedback.
type Tier string

const (
	TierOutstanding Tier = "outstanding"
	TierGood        Tier = "good"
	TierOnTrack     Tier = "on_track"
	TierFarOff      Tier = "far_off"
)

// Feedback is the tier and message shown after a guess.
type Feedback struct {
	Tier    Tier   `json:"tier"`
	Message string `json:"message"`
}

// FeedbackFor maps a score in [0,100] to its feedback tier.
func FeedbackFor(score int) Feedback {
	switch {
	case score > 70:
		return Feedback{TierOutstanding, "Outstanding! Your guess was very close to the actual prompt!"}
	case score > 40:
		return Feedback{TierGood, "Good guess! You got some of it right."}
	case score > 20:
		return Feedback{TierOnTrack, "Not bad! You're on the right track."}
	default:
		return Feedback{TierFarOff, "Your guess was quite different from the actual prompt. Try again!"}
	}
}
