package nlu_test

import (
	"math"
	"testing"

	"github.com/aprevost/kaia/internal/kaia/nlu"
)

func TestAnalyzeSentiment(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantPositive bool
		wantNegative bool
	}{
		{"positive", "this is great, I love it!", true, false},
		{"negative", "that was a terrible, awful experience", false, true},
		{"neutral", "the meeting starts at noon", false, false},
		{"mixed", "good idea but terrible timing", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nlu.AnalyzeSentiment(tt.text)
			if (got.Positive > 0) != tt.wantPositive {
				t.Errorf("positive score %v, want >0 == %v", got.Positive, tt.wantPositive)
			}
			if (got.Negative > 0) != tt.wantNegative {
				t.Errorf("negative score %v, want >0 == %v", got.Negative, tt.wantNegative)
			}
			if sum := got.Positive + got.Negative + got.Neutral; math.Abs(sum-1) > 1e-9 {
				t.Errorf("scores sum to %v, want 1", sum)
			}
		})
	}
}

func TestAnalyzeSentiment_Empty(t *testing.T) {
	got := nlu.AnalyzeSentiment("   ")
	if got.Neutral != 1 || got.Positive != 0 || got.Negative != 0 {
		t.Errorf("empty text: got %+v, want fully neutral", got)
	}
}
