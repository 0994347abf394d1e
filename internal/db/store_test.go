package db

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// newTestStore creates an in-memory store with the schema applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	rawDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// each connection to :memory: is a separate database
	rawDB.SetMaxOpenConns(1)
	t.Cleanup(func() { rawDB.Close() })

	store := &Store{db: rawDB}
	if err := store.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestKV(t *testing.T) {
	store := newTestStore(t)

	if _, ok, err := store.Get("user"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
	}

	if err := store.Set("user", `{"id":1}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("user", `{"id":2}`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, ok, err := store.Get("user")
	if err != nil || !ok {
		t.Fatalf("Get: ok %v, err %v", ok, err)
	}
	if got != `{"id":2}` {
		t.Errorf("value = %q, want %q", got, `{"id":2}`)
	}

	store.Set("isAuthenticated", "true")
	if err := store.Delete("user", "isAuthenticated", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, key := range []string{"user", "isAuthenticated"} {
		if _, ok, _ := store.Get(key); ok {
			t.Errorf("%s still present after Delete", key)
		}
	}
}

func TestSaveAndListRecordings(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older := &Recording{
		UserID:     1,
		FileName:   "standup.mp3",
		Language:   "en",
		Transcript: "Morning all.",
		Summary:    "Standup",
		CreatedAt:  base,
	}
	newer := &Recording{
		UserID:     1,
		FileName:   "retro.wav",
		Language:   "es",
		Agent:      "Exec",
		Transcript: "Hola.",
		Summary:    "Retro",
		Dialogues:  []Dialogue{{Speaker: "S1", Text: "Hola."}},
		Duration:   90 * time.Second,
		CreatedAt:  base.Add(time.Hour),
	}
	for _, rec := range []*Recording{older, newer} {
		if err := store.SaveRecording(rec); err != nil {
			t.Fatalf("SaveRecording: %v", err)
		}
		if rec.ID == "" {
			t.Fatal("SaveRecording should assign an id")
		}
	}

	recs, err := store.Recordings(1, 0)
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recordings, want 2", len(recs))
	}
	if recs[0].FileName != "retro.wav" {
		t.Errorf("recs[0].FileName = %q, want %q", recs[0].FileName, "retro.wav")
	}
	if recs[0].Duration != 90*time.Second {
		t.Errorf("duration = %v, want 1m30s", recs[0].Duration)
	}
	if len(recs[0].Dialogues) != 1 || recs[0].Dialogues[0].Speaker != "S1" {
		t.Errorf("dialogues = %+v", recs[0].Dialogues)
	}
	if !recs[1].CreatedAt.Equal(base) {
		t.Errorf("createdAt = %v, want %v", recs[1].CreatedAt, base)
	}
	if recs[1].Dialogues == nil || len(recs[1].Dialogues) != 0 {
		t.Errorf("missing dialogues should load as empty, got %#v", recs[1].Dialogues)
	}

	limited, err := store.Recordings(1, 1)
	if err != nil {
		t.Fatalf("Recordings(1, 1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: got %d", len(limited))
	}
}

func TestRecordingByID(t *testing.T) {
	store := newTestStore(t)

	a := &Recording{ID: "abc-111", UserID: 1, FileName: "a.mp3", Language: "en"}
	b := &Recording{ID: "abd-222", UserID: 1, FileName: "b.mp3", Language: "en"}
	c := &Recording{ID: "a_c%-333", UserID: 1, FileName: "c.mp3", Language: "en"}
	store.SaveRecording(a)
	store.SaveRecording(b)
	store.SaveRecording(c)

	tests := []struct {
		id       string
		wantFile string
		wantErr  bool
	}{
		{"abc-111", "a.mp3", false},
		{"abd", "b.mp3", false},
		{"  abd ", "b.mp3", false},
		{"ab", "", true},
		{"zzz", "", true},
		{"", "", true},
		{"   ", "", true},
		{"%", "", true},
		{"_", "", true},
		{"a_c%", "c.mp3", false},
	}
	for _, tt := range tests {
		rec, err := store.Recording(1, tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("Recording(%q) err = %v, wantErr %v", tt.id, err, tt.wantErr)
			continue
		}
		if rec.FileName != tt.wantFile {
			t.Errorf("Recording(%q).FileName = %q, want %q", tt.id, rec.FileName, tt.wantFile)
		}
	}

	for _, id := range []string{"zzz", "", "%"} {
		if _, err := store.Recording(1, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Recording(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestRecordingsArePerUser(t *testing.T) {
	store := newTestStore(t)

	mine := &Recording{ID: "mine-1", UserID: 2, FileName: "standup.mp3", Language: "en"}
	theirs := &Recording{ID: "theirs-1", UserID: 1, FileName: "board-secret.mp3", Language: "en"}
	for _, rec := range []*Recording{mine, theirs} {
		if err := store.SaveRecording(rec); err != nil {
			t.Fatalf("SaveRecording: %v", err)
		}
	}

	recs, err := store.Recordings(2, 0)
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 1 || recs[0].FileName != "standup.mp3" {
		t.Fatalf("Recordings(2) = %+v, want only standup.mp3", recs)
	}
	if recs[0].UserID != 2 {
		t.Errorf("UserID = %d, want 2", recs[0].UserID)
	}

	if _, err := store.Recording(2, "theirs-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Recording(2, other user's id) err = %v, want ErrNotFound", err)
	}
	if _, err := store.Recording(2, "theirs"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Recording(2, other user's prefix) err = %v, want ErrNotFound", err)
	}
	if rec, err := store.Recording(1, "theirs"); err != nil || rec.FileName != "board-secret.mp3" {
		t.Errorf("Recording(1, prefix) = %q, %v", rec.FileName, err)
	}
}

func TestMigrateAddsUserColumn(t *testing.T) {
	rawDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rawDB.SetMaxOpenConns(1)
	t.Cleanup(func() { rawDB.Close() })

	// recordings as written before history was per-user
	_, err = rawDB.Exec(`
		CREATE TABLE recordings (
			id TEXT PRIMARY KEY,
			fileName TEXT NOT NULL,
			language TEXT NOT NULL,
			agent TEXT NOT NULL DEFAULT '',
			transcript TEXT NOT NULL,
			summary TEXT NOT NULL,
			dialogues TEXT NOT NULL DEFAULT '[]',
			durationMs INTEGER NOT NULL DEFAULT 0,
			createdAt REAL NOT NULL
		);
		INSERT INTO recordings (id, fileName, language, transcript, summary, createdAt)
		VALUES ('old-1', 'old.mp3', 'en', '', '', 1);
	`)
	if err != nil {
		t.Fatalf("create old schema: %v", err)
	}

	store := &Store{db: rawDB}
	if err := store.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	recs, err := store.Recordings(1, 0)
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("rows without an owner were listed: %+v", recs)
	}
	if err := store.SaveRecording(&Recording{UserID: 1, FileName: "new.mp3", Language: "en"}); err != nil {
		t.Fatalf("SaveRecording after migrate: %v", err)
	}
	if recs, _ := store.Recordings(1, 0); len(recs) != 1 {
		t.Errorf("got %d recordings after save, want 1", len(recs))
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "minutes.sqlite")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if v, ok, _ := reopened.Get("k"); !ok || v != "v" {
		t.Errorf("value after reopen = %q, %v", v, ok)
	}
}
