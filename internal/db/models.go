// Package db provides SQLite storage for the local session record and the
// history of processed recordings.
package db

import "time"

// Recording is one processed file kept in local history. UserID is the
// account that processed it; history is only ever listed for that account.
type Recording struct {
	ID         string
	UserID     int
	FileName   string
	Language   string
	Agent      string
	Transcript string
	Summary    string
	Dialogues  []Dialogue
	Duration   time.Duration
	CreatedAt  time.Time
}

// Dialogue is a speaker turn stored with a recording.
type Dialogue struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}
