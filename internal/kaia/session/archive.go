package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aprevost/kaia/internal/kaia/nlu"
)

// Archive persists completed turns beyond process lifetime. The in-memory
// Store stays authoritative for context building; the archive is an
// append-only transcript consulted for offline inspection and replay.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS turns (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	utterance   TEXT NOT NULL,
	intent      TEXT NOT NULL,
	confidence  REAL NOT NULL,
	pattern_id  TEXT NOT NULL DEFAULT '',
	entities    TEXT,
	response    TEXT NOT NULL,
	source      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at);
`

// OpenArchive opens (or creates) a SQLite transcript archive at path.
// If logger is nil, the default slog logger is used.
func OpenArchive(path string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	// SQLite is single-writer by design. Keep a single shared connection so
	// concurrent callers are serialized by database/sql instead of fighting
	// for write locks across multiple underlying connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: create schema: %w", err)
	}

	return &Archive{db: db, logger: logger}, nil
}

// Record appends one completed turn to the transcript.
func (a *Archive) Record(ctx context.Context, sessionID string, t Turn) error {
	var entitiesJSON []byte
	if len(t.Entities) > 0 {
		var err error
		entitiesJSON, err = json.Marshal(t.Entities)
		if err != nil {
			return fmt.Errorf("archive: marshal entities: %w", err)
		}
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO turns
			(id, session_id, utterance, intent, confidence, pattern_id, entities, response, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		sessionID,
		t.Utterance.Text,
		string(t.Intent),
		t.Confidence,
		t.PatternID,
		entitiesJSON,
		t.Response,
		string(t.Source),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("archive: insert turn: %w", err)
	}
	return nil
}

// Transcript returns up to limit archived turns for a session, oldest first.
// When the transcript is longer than limit, the most recent turns win.
// A limit ≤ 0 returns the full transcript.
func (a *Archive) Transcript(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	query := `
		SELECT id, utterance, intent, confidence, pattern_id, entities, response, source, created_at
		FROM turns WHERE session_id = ? ORDER BY created_at DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: query transcript: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			t            Turn
			intent       string
			source       string
			entitiesJSON []byte
			createdAt    string
		)
		if err := rows.Scan(&t.ID, &t.Utterance.Text, &intent, &t.Confidence,
			&t.PatternID, &entitiesJSON, &t.Response, &source, &createdAt); err != nil {
			return nil, fmt.Errorf("archive: scan turn: %w", err)
		}
		t.Intent = nlu.Intent(intent)
		t.Source = Source(source)
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			t.CreatedAt = ts
			t.Utterance.Timestamp = ts
		}
		if len(entitiesJSON) > 0 {
			if err := json.Unmarshal(entitiesJSON, &t.Entities); err != nil {
				a.logger.Warn("archive: corrupt entities payload, skipping",
					"turn_id", t.ID, "err", err)
			}
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Rows arrive newest first; callers read transcripts top to bottom.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
