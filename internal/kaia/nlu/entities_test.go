package nlu_test

import (
	"reflect"
	"testing"

	"github.com/aprevost/kaia/internal/kaia/nlu"
)

func findAll(entities []nlu.Entity, typ nlu.EntityType) []string {
	var out []string
	for _, e := range entities {
		if e.Type == typ {
			out = append(out, e.Normalized)
		}
	}
	return out
}

func TestExtract_Location(t *testing.T) {
	got := nlu.Extract("What's the weather in San Francisco today?")

	locs := findAll(got, nlu.EntityLocation)
	if !reflect.DeepEqual(locs, []string{"San Francisco"}) {
		t.Errorf("locations: got %v, want [San Francisco]", locs)
	}
	times := findAll(got, nlu.EntityTime)
	if !reflect.DeepEqual(times, []string{"today"}) {
		t.Errorf("times: got %v, want [today]", times)
	}
}

func TestExtract_Numbers(t *testing.T) {
	got := nlu.Extract("Calculate 15% of 200")

	nums := nlu.NumbersIn(got)
	if !reflect.DeepEqual(nums, []float64{15, 200}) {
		t.Errorf("numbers: got %v, want [15 200]", nums)
	}
}

func TestExtract_NumberNormalization(t *testing.T) {
	got := nlu.Extract("add 3.50 and 07")

	nums := findAll(got, nlu.EntityNumber)
	if !reflect.DeepEqual(nums, []string{"3.5", "7"}) {
		t.Errorf("normalized numbers: got %v, want [3.5 7]", nums)
	}
}

func TestExtract_Person(t *testing.T) {
	got := nlu.Extract("Please call John Smith after lunch")

	people := findAll(got, nlu.EntityPerson)
	if !reflect.DeepEqual(people, []string{"John Smith"}) {
		t.Errorf("people: got %v, want [John Smith]", people)
	}
}

func TestExtract_TimePhrases(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"remind me in 2 hours", []string{"in 2 hours"}},
		{"meeting at 10:30 am tomorrow", []string{"10:30 am", "tomorrow"}},
		{"see you tonight", []string{"tonight"}},
	}
	for _, tt := range tests {
		got := findAll(nlu.Extract(tt.text), nlu.EntityTime)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Extract(%q) times: got %v, want %v", tt.text, got, tt.want)
		}
	}
}

// TestExtract_LongestMatchWins checks in-category overlap resolution: two
// location patterns both cover the same city name, but only the single
// longest span survives.
func TestExtract_LongestMatchWins(t *testing.T) {
	got := nlu.Extract("the New York weather in New York")

	locs := findAll(got, nlu.EntityLocation)
	if len(locs) != 2 {
		t.Fatalf("locations: got %v, want exactly two New York spans", locs)
	}
	for _, l := range locs {
		if l != "New York" {
			t.Errorf("location: got %q, want %q", l, "New York")
		}
	}
}

func TestExtract_NoEntities(t *testing.T) {
	for _, text := range []string{"", "   ", "nothing to see here", "zzz"} {
		if got := nlu.Extract(text); len(got) != 0 {
			t.Errorf("Extract(%q): got %v, want empty", text, got)
		}
	}
}

func TestExtract_Pure(t *testing.T) {
	const text = "weather in Lisbon at 10:15"
	first := nlu.Extract(text)
	second := nlu.Extract(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract not deterministic: %v vs %v", first, second)
	}
}
