package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a recording id does not exist for the user.
var ErrNotFound = errors.New("recording not found")

const schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		userId INTEGER NOT NULL DEFAULT 0,
		fileName TEXT NOT NULL,
		language TEXT NOT NULL,
		agent TEXT NOT NULL DEFAULT '',
		transcript TEXT NOT NULL,
		summary TEXT NOT NULL,
		dialogues TEXT NOT NULL DEFAULT '[]',
		durationMs INTEGER NOT NULL DEFAULT 0,
		createdAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS recordings_createdAt ON recordings(createdAt);
`

// userIndex runs after addUserColumn so databases created before history was
// per-user get the column first.
const userIndex = `CREATE INDEX IF NOT EXISTS recordings_userId ON recordings(userId, createdAt)`

const recordingColumns = `id, userId, fileName, language, agent, transcript, summary, dialogues, durationMs, createdAt`

// Store holds the local key-value table and recording history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with WAL and applies
// the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.addUserColumn(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := s.db.Exec(userIndex); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// addUserColumn adds recordings.userId to databases that predate it. Rows
// written before then keep user 0 and are never listed.
func (s *Store) addUserColumn() error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('recordings')`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == "userId" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = s.db.Exec(`ALTER TABLE recordings ADD COLUMN userId INTEGER NOT NULL DEFAULT 0`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *Store) Delete(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

// SaveRecording inserts rec, assigning an id and timestamp when unset.
func (s *Store) SaveRecording(rec *Recording) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	dialogues := rec.Dialogues
	if dialogues == nil {
		dialogues = []Dialogue{}
	}
	raw, err := json.Marshal(dialogues)
	if err != nil {
		return fmt.Errorf("encode dialogues: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO recordings (`+recordingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.FileName, rec.Language, rec.Agent, rec.Transcript, rec.Summary,
		string(raw), rec.Duration.Milliseconds(), unixFromTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// Recordings returns up to limit of userID's recordings, newest first. A
// limit of zero or less returns all of them.
func (s *Store) Recordings(userID, limit int) ([]Recording, error) {
	query := `
		SELECT ` + recordingColumns + `
		FROM recordings
		WHERE userId = ?
		ORDER BY createdAt DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var recs []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Recording returns userID's recording with id, or ErrNotFound. A unique id
// prefix is accepted so short ids from `history` can be used. The prefix is
// compared literally, so wildcard characters match nothing.
func (s *Store) Recording(userID int, id string) (Recording, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Recording{}, ErrNotFound
	}
	rows, err := s.db.Query(`
		SELECT `+recordingColumns+`
		FROM recordings
		WHERE userId = ? AND substr(id, 1, length(?)) = ?
		ORDER BY id = ? DESC
		LIMIT 2
	`, userID, id, id, id)
	if err != nil {
		return Recording{}, fmt.Errorf("query recording: %w", err)
	}
	defer rows.Close()

	var found []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return Recording{}, err
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return Recording{}, err
	}

	switch {
	case len(found) == 0:
		return Recording{}, ErrNotFound
	case found[0].ID == id:
		return found[0], nil
	case len(found) > 1:
		return Recording{}, fmt.Errorf("id prefix %q is ambiguous", id)
	}
	return found[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecording(row scanner) (Recording, error) {
	var rec Recording
	var dialogues string
	var durationMs int64
	var createdAt float64
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.FileName, &rec.Language, &rec.Agent,
		&rec.Transcript, &rec.Summary, &dialogues, &durationMs, &createdAt); err != nil {
		return Recording{}, fmt.Errorf("scan recording: %w", err)
	}
	if err := json.Unmarshal([]byte(dialogues), &rec.Dialogues); err != nil {
		return Recording{}, fmt.Errorf("decode dialogues for %s: %w", rec.ID, err)
	}
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	rec.CreatedAt = timeFromUnix(createdAt)
	return rec, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
