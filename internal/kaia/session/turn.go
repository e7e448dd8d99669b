// Package session implements per-conversation state: the bounded context
// store of past turns, the session manager partitioning stores by session
// key, and an optional SQLite transcript archive.
package session

import (
	"time"

	"github.com/aprevost/kaia/internal/kaia/nlu"
)

// Source records which stage of the fallback cascade produced a response.
type Source string

const (
	SourceTool   Source = "tool"
	SourceLLM    Source = "llm"
	SourceCanned Source = "canned"
	SourceError  Source = "error"
)

// Utterance is one piece of raw user input. Immutable once created.
type Utterance struct {
	// Text is the raw input, as received.
	Text string
	// Timestamp is when the utterance entered the system.
	Timestamp time.Time
	// Language is an optional detected language tag; empty when unknown.
	Language string
}

// Turn is one utterance/response pair plus its derived metadata. Turns are
// owned by the Store: appended once, never mutated afterwards.
type Turn struct {
	// ID is a unique turn identifier.
	ID string
	// Utterance is the user input that started the turn.
	Utterance Utterance
	// Intent and Confidence come from the classifier.
	Intent     nlu.Intent
	Confidence float64
	// PatternID identifies the winning classifier pattern, for traceability.
	PatternID string
	// Entities were extracted from the utterance.
	Entities []nlu.Entity
	// Response is the final response text.
	Response string
	// Source is the cascade stage that produced Response.
	Source Source
	// CreatedAt is when the turn completed.
	CreatedAt time.Time
}
