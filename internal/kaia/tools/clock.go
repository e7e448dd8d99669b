package tools

import (
	"strings"
	"time"
)

// Tool names used for cache keys and result attribution.
const (
	ToolClock      = "clock"
	ToolWeather    = "weather"
	ToolCalculator = "calculator"
)

// Clock answers time and date questions from the local wall clock. The now
// function is injectable so tests get stable output.
type Clock struct {
	now func() time.Time
}

// NewClock returns a Clock reading from time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewClockAt returns a Clock reading from the given function.
func NewClockAt(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Answer produces a spoken-style answer for a time or date question,
// choosing between the two based on the wording of the utterance.
func (c *Clock) Answer(utterance string) string {
	now := c.now()
	lower := strings.ToLower(utterance)
	if strings.Contains(lower, "date") || strings.Contains(lower, "today") || strings.Contains(lower, "day is") {
		return "Today is " + now.Format("Monday, January 2, 2006") + "."
	}
	return "It's " + now.Format("3:04 PM") + "."
}
