/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	tracker.go: acknowledgment tracking for outbound configuration commands.

	The wire protocol carries no unique command token; an ACK/NAK only
	echoes the (class, id) of the command it answers. The tracker therefore
	matches an inbound acknowledgment against the oldest still-pending
	command with the same (class, id). This FIFO policy is a documented
	approximation: under a burst of identical commands an ack can resolve
	the wrong entry, and nothing on the wire can tell us. Do not "fix" this
	with invented correlation ids.
*/
package tracker

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an outbound command.
type Status int

const (
	StatusPending   Status = iota // submitted, no acknowledgment yet
	StatusConfirmed               // terminal: positive acknowledgment received
	StatusWarning                 // terminal: negative acknowledgment or timeout
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusWarning:
		return "WARNING"
	}
	return "?"
}

// Mode tells whether a command sets configuration or polls for it.
type Mode int

const (
	ModeSet Mode = iota
	ModePoll
)

func (m Mode) String() string {
	if m == ModePoll {
		return "POLL"
	}
	return "SET"
}

// Outcome records why a command left PENDING.
type Outcome string

const (
	OutcomeAck     Outcome = "ACK"
	OutcomeNak     Outcome = "NAK"
	OutcomeTimeout Outcome = "timeout"
)

// Command is one tracked outbound command. Values returned by the tracker
// are snapshots; the tracker keeps the only mutable copy.
type Command struct {
	Handle      string
	Class       byte
	ID          byte
	Payload     []byte
	Mode        Mode
	SubmittedAt time.Time
	Status      Status
	ResolvedAt  time.Time
	Outcome     Outcome
}

// Tracker is the bounded, time-ordered collection of outbound command
// records. All three mutation paths (submit, resolve, sweep) run under one
// mutex so a timeout sweep can never race a resolution for the same
// command.
type Tracker struct {
	mu          sync.Mutex
	pending     []*Command // submission order
	resolved    []*Command // resolution order, bounded by maxResolved
	byHandle    map[string]*Command
	timeout     time.Duration
	maxResolved int
}

const (
	DefaultTimeout     = 3 * time.Second
	DefaultMaxResolved = 200
)

func New(timeout time.Duration, maxResolved int) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxResolved <= 0 {
		maxResolved = DefaultMaxResolved
	}
	return &Tracker{
		byHandle:    make(map[string]*Command),
		timeout:     timeout,
		maxResolved: maxResolved,
	}
}

// Submit registers a new PENDING command and returns its handle. Duplicate
// (class, id) pairs are permitted and tracked independently; commands are
// never coalesced.
func (t *Tracker) Submit(class, id byte, payload []byte, mode Mode, now time.Time) string {
	cmd := &Command{
		Handle:      uuid.NewString(),
		Class:       class,
		ID:          id,
		Payload:     append([]byte(nil), payload...),
		Mode:        mode,
		SubmittedAt: now,
		Status:      StatusPending,
	}

	t.mu.Lock()
	t.pending = append(t.pending, cmd)
	t.byHandle[cmd.Handle] = cmd
	t.mu.Unlock()
	return cmd.Handle
}

// Resolve matches an inbound acknowledgment to the oldest PENDING command
// for the referenced (class, id) and moves it to CONFIRMED (ack) or WARNING
// (nak). A second ack with no remaining PENDING entry for the pair is
// logged and ignored; that is normal after a timeout already resolved the
// command.
func (t *Tracker) Resolve(class, id byte, ack bool, now time.Time) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, cmd := range t.pending {
		if cmd.Class != class || cmd.ID != id {
			continue
		}
		outcome := OutcomeAck
		status := StatusConfirmed
		if !ack {
			outcome = OutcomeNak
			status = StatusWarning
		}
		t.pending = append(t.pending[:i], t.pending[i+1:]...)
		t.finishLocked(cmd, status, outcome, now)
		return cmd.Handle, true
	}

	log.Printf("tracker: unmatched acknowledgment for class=0x%02X id=0x%02X (ack=%t)", class, id, ack)
	return "", false
}

// Sweep transitions every PENDING command older than the timeout threshold
// to WARNING and returns the affected handles. It is driven by the session
// on a fixed interval, independent of inbound traffic.
func (t *Tracker) Sweep(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []string
	keep := t.pending[:0]
	for _, cmd := range t.pending {
		if now.Sub(cmd.SubmittedAt) >= t.timeout {
			t.finishLocked(cmd, StatusWarning, OutcomeTimeout, now)
			expired = append(expired, cmd.Handle)
			continue
		}
		keep = append(keep, cmd)
	}
	t.pending = keep
	return expired
}

// finishLocked moves cmd into the resolved backlog, evicting the oldest
// resolved entries beyond the bound. PENDING entries are never evicted.
func (t *Tracker) finishLocked(cmd *Command, status Status, outcome Outcome, now time.Time) {
	cmd.Status = status
	cmd.Outcome = outcome
	cmd.ResolvedAt = now
	t.resolved = append(t.resolved, cmd)
	for len(t.resolved) > t.maxResolved {
		delete(t.byHandle, t.resolved[0].Handle)
		t.resolved = t.resolved[1:]
	}
}

// Status reports the current state of a command by handle. The second
// return is false for unknown or already evicted handles.
func (t *Tracker) Status(handle string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cmd, ok := t.byHandle[handle]
	if !ok {
		return 0, false
	}
	return cmd.Status, true
}

// Commands returns snapshots of all tracked commands, pending first in
// submission order, then resolved in resolution order.
func (t *Tracker) Commands() []Command {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Command, 0, len(t.pending)+len(t.resolved))
	for _, cmd := range t.pending {
		out = append(out, snapshot(cmd))
	}
	for _, cmd := range t.resolved {
		out = append(out, snapshot(cmd))
	}
	return out
}

// PendingCount returns the number of unresolved commands.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func snapshot(cmd *Command) Command {
	c := *cmd
	c.Payload = append([]byte(nil), cmd.Payload...)
	return c
}
