package nlu

import "strings"

const (
	// DefaultConfidenceThreshold is the minimum score an intent must reach
	// to be reported; anything below is classified as IntentUnknown.
	DefaultConfidenceThreshold = 0.3

	// scoreEpsilon is the margin within which two intent scores are treated
	// as a tie and resolved by pattern-set specificity, then by the fixed
	// priority order.
	scoreEpsilon = 0.05

	// corroborationBoost is added for every additional pattern of the same
	// intent that matches beyond the first.
	corroborationBoost = 0.1
)

// Match is the result of classifying one utterance.
type Match struct {
	// Intent is the winning intent, or IntentUnknown when nothing cleared
	// the threshold.
	Intent Intent
	// Confidence is the winning score in [0, 1]. Always 0 for IntentUnknown.
	Confidence float64
	// PatternID identifies the highest-weighted pattern that matched, for
	// traceability. Empty for IntentUnknown.
	PatternID string
}

// Classifier scores utterances against a Library's pattern table.
//
// Classification is pure and deterministic: the same text always yields the
// same Match. Safe for concurrent use.
type Classifier struct {
	lib       *Library
	threshold float64
}

// NewClassifier returns a Classifier over lib. A threshold ≤ 0 selects
// DefaultConfidenceThreshold.
func NewClassifier(lib *Library, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Classifier{lib: lib, threshold: threshold}
}

// intentScore accumulates per-intent evidence during a single Classify call.
type intentScore struct {
	intent     Intent
	confidence float64
	patternID  string
}

// Classify scores text against every pattern in the library and returns the
// best intent with its confidence.
//
// The score for an intent is the weight of its most specific matching pattern,
// boosted by corroborationBoost for each additional matching pattern, clamped
// to 1. Every intent scoring within scoreEpsilon of the top score is a tie
// candidate; among the candidates the most specific pattern set (fewest
// trigger phrases) wins, then the fixed priority order, then the intent name.
// Measuring the tie band against the single top score keeps the result
// independent of map iteration order.
//
// Text that matches nothing, or whose best score falls below the threshold,
// yields {IntentUnknown, 0}, a valid terminal classification, not an error.
func (c *Classifier) Classify(text string) Match {
	text = strings.TrimSpace(text)
	if text == "" {
		return Match{Intent: IntentUnknown}
	}

	scores := make(map[Intent]*intentScore)
	for _, p := range c.lib.patterns {
		if !p.re.MatchString(text) {
			continue
		}
		s := scores[p.Intent]
		if s == nil {
			scores[p.Intent] = &intentScore{intent: p.Intent, confidence: p.Weight, patternID: p.ID}
			continue
		}
		if p.Weight > s.confidence {
			// Track the most specific pattern; the previous best becomes
			// corroboration.
			s.confidence = p.Weight
			s.patternID = p.ID
		}
		s.confidence += corroborationBoost
	}
	if len(scores) == 0 {
		return Match{Intent: IntentUnknown}
	}

	var maxConf float64
	for _, s := range scores {
		if s.confidence > 1 {
			s.confidence = 1
		}
		if s.confidence > maxConf {
			maxConf = s.confidence
		}
	}

	var best *intentScore
	for _, s := range scores {
		if maxConf-s.confidence > scoreEpsilon {
			continue
		}
		if best == nil || c.prefer(s, best) {
			best = s
		}
	}

	if best.confidence < c.threshold {
		return Match{Intent: IntentUnknown}
	}
	return Match{Intent: best.intent, Confidence: best.confidence, PatternID: best.patternID}
}

// prefer reports whether tie candidate a outranks b. It is a strict total
// order on intents, so the selection over the candidate set cannot depend on
// visit order.
func (c *Classifier) prefer(a, b *intentScore) bool {
	sa, sb := c.lib.specificity(a.intent), c.lib.specificity(b.intent)
	if sa != sb {
		return sa < sb
	}
	if pa, pb := priorityIndex(a.intent), priorityIndex(b.intent); pa != pb {
		return pa < pb
	}
	// Custom intents outside the priority table order lexically so the
	// result never depends on map iteration order.
	return a.intent < b.intent
}

func priorityIndex(intent Intent) int {
	for i, it := range intentPriority {
		if it == intent {
			return i
		}
	}
	return len(intentPriority)
}
