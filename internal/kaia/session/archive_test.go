package session_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aprevost/kaia/internal/kaia/nlu"
	"github.com/aprevost/kaia/internal/kaia/session"
)

func openTestArchive(t *testing.T) *session.Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	a, err := session.OpenArchive(path, slog.Default())
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_RecordAndTranscript(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	turns := []session.Turn{
		{
			ID:         "t1",
			Utterance:  session.Utterance{Text: "What's the weather in Paris?", Timestamp: time.Now().Add(-time.Minute)},
			Intent:     nlu.IntentWeather,
			Confidence: 0.9,
			PatternID:  "weather.question",
			Entities:   []nlu.Entity{{Type: nlu.EntityLocation, Span: "Paris", Normalized: "Paris"}},
			Response:   "Sunny in Paris.",
			Source:     session.SourceTool,
			CreatedAt:  time.Now().Add(-time.Minute),
		},
		{
			ID:        "t2",
			Utterance: session.Utterance{Text: "Thanks!", Timestamp: time.Now()},
			Intent:    nlu.IntentConversation,
			Response:  "Any time.",
			Source:    session.SourceCanned,
			CreatedAt: time.Now(),
		},
	}
	for _, tn := range turns {
		if err := a.Record(ctx, "sess-1", tn); err != nil {
			t.Fatalf("Record(%s): %v", tn.ID, err)
		}
	}
	if err := a.Record(ctx, "sess-2", makeTurn(9, nlu.IntentJoke)); err != nil {
		t.Fatalf("Record(other session): %v", err)
	}

	got, err := a.Transcript(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("transcript length: got %d, want 2", len(got))
	}
	if got[0].ID != "t1" || got[1].ID != "t2" {
		t.Errorf("transcript order: got [%s %s], want [t1 t2]", got[0].ID, got[1].ID)
	}
	if got[0].Intent != nlu.IntentWeather || got[0].Source != session.SourceTool {
		t.Errorf("intent/source not preserved: %+v", got[0])
	}
	if len(got[0].Entities) != 1 || got[0].Entities[0].Span != "Paris" {
		t.Errorf("entities not preserved: %+v", got[0].Entities)
	}
}

func TestArchive_TranscriptLimit(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tn := makeTurn(i, nlu.IntentTime)
		tn.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		if err := a.Record(ctx, "sess", tn); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := a.Transcript(ctx, "sess", 2)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limited transcript: got %d turns, want 2", len(got))
	}
	// The limit keeps the most recent turns, still oldest first.
	if got[0].ID != "turn-3" || got[1].ID != "turn-4" {
		t.Errorf("got [%s %s], want [turn-3 turn-4]", got[0].ID, got[1].ID)
	}
}

func TestArchive_UnknownSessionIsEmpty(t *testing.T) {
	a := openTestArchive(t)

	got, err := a.Transcript(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d turns for unknown session, want 0", len(got))
	}
}
