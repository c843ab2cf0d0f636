package intent

import "strings"

// Prior summarizes what the previous turn had already established, for the
// message-level guards that override the classifier.
type Prior struct {
	Record        Record
	QuestionAsked bool
}

var rejectionPhrases = []string{
	"something else", "not that", "try again",
}

// Broad answers contain rejection-looking words ("no preference") but signal
// "proceed citywide", not pushback.
var broadPhrases = []string{
	"no preference", "don't care", "dont care", "anywhere", "wherever",
}

var rejectionWords = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "stop": {}, "wrong": {},
}

var affirmationPhrases = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "sounds good", "that works", "please",
}

// IsRejection reports whether a message signals pushback on the prior turn
// ("no", "stop", "wrong", "something else", ...).
func IsRejection(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, p := range broadPhrases {
		if strings.Contains(msg, p) {
			return false
		}
	}
	for _, p := range rejectionPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	for _, w := range strings.FieldsFunc(msg, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		if _, ok := rejectionWords[w]; ok {
			return true
		}
	}
	return false
}

// IsAffirmation reports whether a short message reads as a plain yes.
func IsAffirmation(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	msg = strings.Trim(msg, "!. ")
	if msg == "" {
		return false
	}
	for _, p := range affirmationPhrases {
		if msg == p {
			return true
		}
	}
	return false
}

// ApplyMessageGuards overrides the classified record with the two contractual
// message-level rules, regardless of model output:
//
//   - Rejection messages force action=direct with a question asking what to
//     change.
//   - A bare affirmation answering a prior clarifying question confirms the
//     filters already gathered and forces a recommendation.
//
// Rejection wins when a message somehow matches both.
func ApplyMessageGuards(rec Record, message string, prior *Prior) Record {
	if IsRejection(message) {
		rec.Action = ActionDirect
		rec.ClarifyingQuestion = RejectionQuestion
		return rec
	}

	if prior != nil && prior.QuestionAsked && IsAffirmation(message) {
		merged := mergeFromPrior(rec, prior.Record)
		if merged.Kind != KindUnclear {
			merged.Action = ActionRecommend
			if merged.Confidence < RecommendThreshold {
				merged.Confidence = 0.75
			}
			// A confirmed broad answer proceeds citywide rather than re-asking.
			if merged.Borough == "" {
				merged.Borough = "Citywide"
			}
			return merged
		}
	}

	return rec
}

// mergeFromPrior fills fields the current record is missing from the previous
// turn's intent, so a confirmation carries the gathered filters forward.
func mergeFromPrior(rec, prior Record) Record {
	if rec.Kind == KindUnclear {
		rec.Kind = prior.Kind
	}
	if rec.Cuisine == "" {
		rec.Cuisine = prior.Cuisine
	}
	if rec.Category == "" {
		rec.Category = prior.Category
	}
	if rec.Borough == "" {
		rec.Borough = prior.Borough
	}
	if rec.PriceIntent == "" {
		rec.PriceIntent = prior.PriceIntent
	}
	if rec.DateIntent == "" {
		rec.DateIntent = prior.DateIntent
	}
	return rec
}
