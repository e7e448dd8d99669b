package nlu

import "strings"

// Sentiment is a coarse word-list polarity score for one utterance.
// The three fields sum to 1.
type Sentiment struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

var positiveWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "amazing": {}, "wonderful": {},
	"fantastic": {}, "awesome": {}, "love": {}, "like": {}, "happy": {},
	"joy": {}, "pleased": {}, "satisfied": {},
}

var negativeWords = map[string]struct{}{
	"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "hate": {},
	"dislike": {}, "sad": {}, "angry": {}, "frustrated": {}, "disappointed": {},
	"upset": {},
}

// AnalyzeSentiment scores text by counting polarity words. Empty text is
// fully neutral. Pure function, never errors.
func AnalyzeSentiment(text string) Sentiment {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return Sentiment{Neutral: 1}
	}

	var pos, neg int
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"")
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	p := float64(pos) / float64(len(words))
	n := float64(neg) / float64(len(words))
	return Sentiment{Positive: p, Negative: n, Neutral: 1 - p - n}
}
