// Package session implements SPEC_FULL.md §6's "Database sink": a writer
// that accepts kind/content/json rows and persists them, backed by
// github.com/mattn/go-sqlite3 (SPEC_FULL.md §6.2).
package session

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Kind enumerates the persistence row kinds SPEC_FULL.md §6 names.
type Kind string

const (
	KindUser        Kind = "user"
	KindAssistant   Kind = "assistant"
	KindTool        Kind = "tool"
	KindInterrupted Kind = "interrupted"
	KindCommand     Kind = "command"
)

// Sink is the concrete database sink: insert_message(db, session_id,
// agent_uuid, kind, content, data_json) -> Result.
type Sink struct {
	db *sql.DB
}

// Open creates (if needed) and opens the sqlite3-backed session database
// under baseDir/sessions.db, migrating its schema.
func Open(baseDir string) (*Sink, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	dbPath := filepath.Join(baseDir, "sessions.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serializes writers anyway; avoid lock contention

	sink := &Sink{db: db}
	if err := sink.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// DefaultBaseDir returns ~/.ikigai, the default database location.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".ikigai"), nil
}

func (s *Sink) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	data_json TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

CREATE TABLE IF NOT EXISTS last_session (
	project_hash TEXT PRIMARY KEY,
	session_id TEXT NOT NULL
);
`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate session db: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// InsertMessage persists one row, per SPEC_FULL.md §6's database sink
// contract. dataJSON may be empty, persisted as SQL NULL.
func (s *Sink) InsertMessage(sessionID, agentID string, kind Kind, content string, dataJSON string) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	var data any
	if dataJSON != "" {
		data = dataJSON
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, agent_id, kind, content, data_json) VALUES (?, ?, ?, ?, ?)`,
		sessionID, agentID, string(kind), content, data,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// MessageRow is one persisted row, returned by LoadMessages for session
// resume/replay.
type MessageRow struct {
	AgentID  string
	Kind     Kind
	Content  string
	DataJSON string
}

// LoadMessages returns every row for a session in insertion order.
func (s *Sink) LoadMessages(sessionID string) ([]MessageRow, error) {
	rows, err := s.db.Query(
		`SELECT agent_id, kind, content, COALESCE(data_json, '') FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var result []MessageRow
	for rows.Next() {
		var row MessageRow
		var kind string
		if err := rows.Scan(&row.AgentID, &kind, &row.Content, &row.DataJSON); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		row.Kind = Kind(kind)
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListSessions returns up to limit distinct session ids, most recently
// active first. limit <= 0 means unlimited.
func (s *Sink) ListSessions(limit int) ([]string, error) {
	query := `SELECT session_id FROM messages GROUP BY session_id ORDER BY MAX(id) DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveLastSession records the most recent session id for a project hash.
func (s *Sink) SaveLastSession(projectHash, sessionID string) error {
	_, err := s.db.Exec(
		`INSERT INTO last_session (project_hash, session_id) VALUES (?, ?)
		 ON CONFLICT(project_hash) DO UPDATE SET session_id = excluded.session_id`,
		projectHash, sessionID,
	)
	if err != nil {
		return fmt.Errorf("save last session: %w", err)
	}
	return nil
}

// LoadLastSession returns the last session id recorded for a project hash.
func (s *Sink) LoadLastSession(projectHash string) (string, error) {
	var sessionID string
	err := s.db.QueryRow(`SELECT session_id FROM last_session WHERE project_hash = ?`, projectHash).Scan(&sessionID)
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// ProjectHash returns a stable hash for the current workspace path, used to
// key SaveLastSession/LoadLastSession.
func ProjectHash(path string) string {
	clean := filepath.Clean(path)
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:8])
}
