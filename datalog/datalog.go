/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	datalog.go: sqlite-backed log of received traffic and command outcomes.
*/
package datalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	at        TIMESTAMP NOT NULL,
	protocol  TEXT NOT NULL,
	name      TEXT NOT NULL,
	raw       BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS commands (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	at        TIMESTAMP NOT NULL,
	handle    TEXT NOT NULL,
	class     INTEGER NOT NULL,
	msg_id    INTEGER NOT NULL,
	status    TEXT NOT NULL,
	outcome   TEXT NOT NULL
);
`

// Logger appends received messages and command resolutions to a sqlite
// database. All methods are safe for use from the session goroutines;
// database/sql serializes access.
type Logger struct {
	db *sql.DB
}

func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("datalog: create schema: %w", err)
	}
	return &Logger{db: db}, nil
}

// LogMessage records one received frame.
func (l *Logger) LogMessage(at time.Time, protocol, name string, raw []byte) error {
	_, err := l.db.Exec(`INSERT INTO messages (at, protocol, name, raw) VALUES (?, ?, ?, ?)`,
		at, protocol, name, raw)
	return err
}

// LogCommand records a command resolution (or submission, status PENDING).
func (l *Logger) LogCommand(at time.Time, handle string, class, id byte, status, outcome string) error {
	_, err := l.db.Exec(`INSERT INTO commands (at, handle, class, msg_id, status, outcome) VALUES (?, ?, ?, ?, ?, ?)`,
		at, handle, class, id, status, outcome)
	return err
}

func (l *Logger) Close() error {
	return l.db.Close()
}
