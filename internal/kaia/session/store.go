package session

import (
	"sort"
	"sync"
	"time"

	"github.com/aprevost/kaia/internal/kaia/nlu"
)

// DefaultMaxTurns is the bound on the per-session turn history. When
// exceeded, the oldest turn is evicted first (FIFO); eviction is silent and
// there is no separate archive unless a transcript store is wired in.
const DefaultMaxTurns = 50

// Store holds the conversation context for a single logical session: a
// bounded ordered history of turns plus user preferences and the derived
// current topic.
//
// The composer is the single writer for a given session; the internal mutex
// protects concurrent metric/status reads, which observe copies and never
// block the writer for long.
type Store struct {
	mu       sync.Mutex
	id       string
	maxTurns int
	turns    []Turn
	prefs    map[string]string
	lastUsed time.Time
}

// NewStore creates an empty context store. A bound ≤ 0 selects
// DefaultMaxTurns.
func NewStore(id string, maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		id:       id,
		maxTurns: maxTurns,
		prefs:    make(map[string]string),
		lastUsed: time.Now(),
	}
}

// ID returns the session identifier this store belongs to.
func (s *Store) ID() string { return s.id }

// Append records a completed turn, evicting the oldest turn when the bound
// is exceeded.
func (s *Store) Append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, t)
	if len(s.turns) > s.maxTurns {
		excess := len(s.turns) - s.maxTurns
		s.turns = append(s.turns[:0:0], s.turns[excess:]...)
	}
	s.lastUsed = time.Now()
}

// Recent returns copies of up to k most recent turns, oldest first. It never
// returns more than the store's bound.
func (s *Store) Recent(k int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k <= 0 || len(s.turns) == 0 {
		return nil
	}
	if k > len(s.turns) {
		k = len(s.turns)
	}
	out := make([]Turn, k)
	copy(out, s.turns[len(s.turns)-k:])
	return out
}

// Len returns the number of stored turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Topic returns the intent of the most recent turn, the conversation's
// current topic, or IntentUnknown for a fresh session.
func (s *Store) Topic() nlu.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 {
		return nlu.IntentUnknown
	}
	return s.turns[len(s.turns)-1].Intent
}

// Preference returns a stored user preference.
func (s *Store) Preference(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.prefs[key]
	return v, ok
}

// SetPreference stores a user preference key/value pair.
func (s *Store) SetPreference(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key] = value
	s.lastUsed = time.Now()
}

// LastActive returns when the store was last written to.
func (s *Store) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// IntentCount pairs an intent with how often it occurred in the history.
type IntentCount struct {
	Intent nlu.Intent
	Count  int
}

// Summary describes the stored conversation at a glance.
type Summary struct {
	Turns      int
	TopIntents []IntentCount
	LastActive time.Time
}

// Summarize reports turn count and intent frequencies, most frequent first.
// Frequency ties order lexically by intent so output is stable.
func (s *Store) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[nlu.Intent]int)
	for _, t := range s.turns {
		counts[t.Intent]++
	}
	top := make([]IntentCount, 0, len(counts))
	for intent, n := range counts {
		top = append(top, IntentCount{intent, n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Intent < top[j].Intent
	})
	return Summary{Turns: len(s.turns), TopIntents: top, LastActive: s.lastUsed}
}
