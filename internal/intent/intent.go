// Package intent defines the structured intent extracted from an inbound
// message and enforces the confidence-banding contract independently of
// whatever the classifier model actually returned.
package intent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind is the entity type a user is asking about.
type Kind string

const (
	KindRestaurant Kind = "restaurant"
	KindEvent      Kind = "event"
	KindUnclear    Kind = "unclear"
)

// Action is the next step the processor takes for a classified message.
type Action string

const (
	ActionRecommend Action = "recommend"
	ActionClarify   Action = "clarify"
	ActionDirect    Action = "direct"
)

// Confidence band boundaries. At or above RecommendThreshold the intent is
// actionable; between the two it warrants one clarifying question; below
// ClarifyThreshold the bot redirects.
const (
	RecommendThreshold = 0.70
	ClarifyThreshold   = 0.40
)

// FallbackQuestion is the canned redirect used whenever the classifier output
// is unusable or an intent lacks its clarifying question.
const FallbackQuestion = "Hey — tell me what you're in the mood for. Food, something happening tonight, or just an idea?"

// RejectionQuestion is sent when the user pushes back on a prior suggestion.
const RejectionQuestion = "Got it — what should I change? The area, the price, or the direction entirely?"

// Record is the structured intent for one message. The JSON field names match
// the extraction schema the classifier model is instructed to emit.
type Record struct {
	Kind               Kind    `json:"type"`
	Cuisine            string  `json:"cuisine,omitempty"`
	Category           string  `json:"category,omitempty"`
	Borough            string  `json:"borough,omitempty"`
	PriceIntent        string  `json:"priceIntent,omitempty"`
	DateIntent         string  `json:"dateIntent,omitempty"`
	VibeSignal         string  `json:"vibeSignal,omitempty"`
	Confidence         float64 `json:"confidenceScore"`
	Action             Action  `json:"action"`
	ClarifyingQuestion string  `json:"clarifyingQuestion,omitempty"`
}

// Fallback returns the canonical lowest-confidence intent used whenever the
// classifier produced something unusable.
func Fallback() Record {
	return Record{
		Kind:               KindUnclear,
		Confidence:         0.3,
		Action:             ActionDirect,
		ClarifyingQuestion: FallbackQuestion,
	}
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// StripFences removes markdown code-fence wrappers the model sometimes adds
// around its JSON output.
func StripFences(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.ReplaceAll(raw, "```", ""))
}

// Parse turns raw classifier output into a normalized Record. Malformed output
// never propagates: the canonical Fallback record is returned together with
// the parse error so the caller can log it.
func Parse(raw string) (Record, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return Fallback(), errEmptyOutput
	}

	var rec Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return Fallback(), err
	}

	rec.Normalize()
	return rec, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

const errEmptyOutput = parseError("classifier returned empty output")

// Normalize clamps the confidence score and re-derives the action from the
// banding contract. The band is authoritative over whatever action the model
// claimed, and recommend additionally requires a concrete kind, at least one
// concrete filter, and a location signal.
func (r *Record) Normalize() {
	if r.Confidence < 0 {
		r.Confidence = 0
	} else if r.Confidence > 1 {
		r.Confidence = 1
	}

	switch r.Kind {
	case KindRestaurant, KindEvent:
	default:
		r.Kind = KindUnclear
	}

	switch {
	case r.Confidence >= RecommendThreshold && r.actionable():
		r.Action = ActionRecommend
	case r.Confidence >= ClarifyThreshold:
		r.Action = ActionClarify
	default:
		r.Action = ActionDirect
	}

	if r.Action != ActionRecommend && r.ClarifyingQuestion == "" {
		r.ClarifyingQuestion = FallbackQuestion
	}
}

// actionable reports whether the record carries enough signal to recommend:
// a concrete kind, a cuisine or category filter, and any location signal.
// A broad "citywide"/"anywhere" answer counts as a location, so the bot does
// not loop asking for a borough the user declined to give.
func (r *Record) actionable() bool {
	if r.Kind == KindUnclear {
		return false
	}
	if r.Cuisine == "" && r.Category == "" {
		return false
	}
	return r.Borough != ""
}

// HasLocationSignal reports whether the intent carries any location, broad or
// specific.
func (r *Record) HasLocationSignal() bool {
	return r.Borough != ""
}
