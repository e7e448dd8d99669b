package nlu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// EntityType categorizes an extracted entity.
type EntityType string

const (
	EntityLocation EntityType = "location"
	EntityTime     EntityType = "time"
	EntityNumber   EntityType = "number"
	EntityPerson   EntityType = "person"
)

// Entity is a structured value pulled out of raw text.
type Entity struct {
	// Type is the entity category.
	Type EntityType `json:"type"`
	// Span is the raw text that matched.
	Span string `json:"span"`
	// Normalized is the canonical form: trimmed title case for locations and
	// people, lower case for time phrases, decimal notation for numbers.
	Normalized string `json:"normalized"`
}

// entityMatcher pairs a category with its ordered regular expressions.
// Expressions with a capture group extract the group; the others extract the
// whole match.
type entityMatcher struct {
	typ      EntityType
	patterns []*regexp.Regexp
}

// Matchers run in this order; within one category overlapping candidates are
// resolved longest-match-wins. Different categories may claim overlapping
// spans of the same text independently.
var entityMatchers = []entityMatcher{
	{EntityLocation, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:in|at|near|around|for)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+(?:weather|temperature|forecast)`),
	}},
	{EntityTime, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday|tonight|next week|this weekend)\b`),
		regexp.MustCompile(`(?i)\b(in\s+\d+\s+(?:minutes?|hours?|days?|weeks?|months?))\b`),
		regexp.MustCompile(`(?i)\b(\d{1,2}:\d{2}\s*(?:am|pm)?)\b`),
		regexp.MustCompile(`(?i)\b(morning|afternoon|evening|night|noon|midnight)\b`),
	}},
	{EntityNumber, []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`),
	}},
	{EntityPerson, []*regexp.Regexp{
		regexp.MustCompile(`\b(?:call|message|text|email|contact|reach)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`),
	}},
}

// span is a candidate match inside the input text.
type span struct {
	start, end int
	text       string
}

// Extract pulls structured entities out of raw text. It is a pure function:
// no side effects, and it returns an empty slice (never an error) when
// nothing matches.
//
// Matching runs the category matchers in a fixed order. Within a category,
// overlapping candidates are resolved longest-match-wins; the surviving spans
// are reported in order of appearance.
func Extract(text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var entities []Entity
	for _, m := range entityMatchers {
		var candidates []span
		for _, re := range m.patterns {
			for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
				// Prefer the first capture group when present.
				start, end := idx[0], idx[1]
				if len(idx) >= 4 && idx[2] >= 0 {
					start, end = idx[2], idx[3]
				}
				candidates = append(candidates, span{start, end, text[start:end]})
			}
		}
		for _, s := range resolveOverlaps(candidates) {
			entities = append(entities, Entity{
				Type:       m.typ,
				Span:       s.text,
				Normalized: normalizeEntity(m.typ, s.text),
			})
		}
	}
	return entities
}

// resolveOverlaps keeps the longest span from every overlapping group,
// returning survivors in order of appearance.
func resolveOverlaps(candidates []span) []span {
	if len(candidates) == 0 {
		return nil
	}
	// Longest first so a longer span claims its region before any shorter
	// overlap is considered.
	sort.SliceStable(candidates, func(i, j int) bool {
		if li, lj := candidates[i].end-candidates[i].start, candidates[j].end-candidates[j].start; li != lj {
			return li > lj
		}
		return candidates[i].start < candidates[j].start
	})

	var kept []span
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if c.start < k.end && k.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

func normalizeEntity(typ EntityType, raw string) string {
	raw = strings.TrimSpace(raw)
	switch typ {
	case EntityNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return raw
	case EntityTime:
		return strings.ToLower(raw)
	case EntityLocation, EntityPerson:
		return titleCase(raw)
	default:
		return raw
	}
}

// titleCase upper-cases the first letter of every space-separated word.
// Good enough for gazetteer-free place and person names; no Unicode special
// casing needed for the ASCII-heavy spans the matchers produce.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NumbersIn returns the normalized numeric entities from a previously
// extracted set, parsed as floats, preserving order.
func NumbersIn(entities []Entity) []float64 {
	var nums []float64
	for _, e := range entities {
		if e.Type != EntityNumber {
			continue
		}
		if f, err := strconv.ParseFloat(e.Normalized, 64); err == nil {
			nums = append(nums, f)
		}
	}
	return nums
}

// FirstOfType returns the first entity of the given type, or nil.
func FirstOfType(entities []Entity, typ EntityType) *Entity {
	for i := range entities {
		if entities[i].Type == typ {
			return &entities[i]
		}
	}
	return nil
}
