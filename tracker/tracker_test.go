/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.
*/
package tracker

import (
	"testing"
	"time"
)

var base = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func mustStatus(t *testing.T, tr *Tracker, handle string, want Status) {
	t.Helper()
	got, ok := tr.Status(handle)
	if !ok {
		t.Fatalf("Status(%s) unknown handle", handle)
	}
	if got != want {
		t.Fatalf("Status(%s) = %v want %v", handle, got, want)
	}
}

// An ack resolves the oldest pending command for its (class, id), and each
// ack resolves exactly one command.
func TestResolve_OldestFirst(t *testing.T) {
	tr := New(DefaultTimeout, DefaultMaxResolved)
	h1 := tr.Submit(0x06, 0x01, []byte{0xF0, 0x00}, ModeSet, base)
	h2 := tr.Submit(0x06, 0x01, []byte{0xF0, 0x04}, ModeSet, base.Add(10*time.Millisecond))

	got, ok := tr.Resolve(0x06, 0x01, true, base.Add(time.Second))
	if !ok || got != h1 {
		t.Fatalf("Resolve() = %q, %t; want %q, true", got, ok, h1)
	}
	mustStatus(t, tr, h1, StatusConfirmed)
	mustStatus(t, tr, h2, StatusPending)

	got, ok = tr.Resolve(0x06, 0x01, true, base.Add(2*time.Second))
	if !ok || got != h2 {
		t.Fatalf("second Resolve() = %q, %t; want %q, true", got, ok, h2)
	}

	// Nothing pending left for the pair; a third ack is ignored.
	if got, ok := tr.Resolve(0x06, 0x01, true, base.Add(3*time.Second)); ok {
		t.Fatalf("third Resolve() matched %q, want no match", got)
	}
}

func TestResolve_NakIsWarning(t *testing.T) {
	tr := New(DefaultTimeout, DefaultMaxResolved)
	h := tr.Submit(0x06, 0x24, nil, ModePoll, base)

	if _, ok := tr.Resolve(0x06, 0x24, false, base.Add(time.Second)); !ok {
		t.Fatalf("Resolve() found no pending command")
	}
	mustStatus(t, tr, h, StatusWarning)
}

// Commands with different (class, id) never satisfy each other's acks.
func TestResolve_PairsIndependent(t *testing.T) {
	tr := New(DefaultTimeout, DefaultMaxResolved)
	hPrt := tr.Submit(0x06, 0x00, nil, ModePoll, base)
	hRate := tr.Submit(0x06, 0x08, nil, ModePoll, base)

	if got, ok := tr.Resolve(0x06, 0x08, true, base.Add(time.Second)); !ok || got != hRate {
		t.Fatalf("Resolve(0x06, 0x08) = %q, %t; want %q", got, ok, hRate)
	}
	mustStatus(t, tr, hPrt, StatusPending)
	mustStatus(t, tr, hRate, StatusConfirmed)
}

func TestSweep_TimesOutStaleCommands(t *testing.T) {
	tr := New(3*time.Second, DefaultMaxResolved)
	h := tr.Submit(0x06, 0x01, nil, ModeSet, base)

	if expired := tr.Sweep(base.Add(2 * time.Second)); len(expired) != 0 {
		t.Fatalf("early sweep expired %v", expired)
	}
	mustStatus(t, tr, h, StatusPending)

	expired := tr.Sweep(base.Add(3 * time.Second))
	if len(expired) != 1 || expired[0] != h {
		t.Fatalf("Sweep() = %v want [%s]", expired, h)
	}
	mustStatus(t, tr, h, StatusWarning)

	// The command left PENDING exactly once: a later sweep finds nothing
	// and a late ack no longer matches.
	if expired := tr.Sweep(base.Add(10 * time.Second)); len(expired) != 0 {
		t.Fatalf("second sweep expired %v", expired)
	}
	if got, ok := tr.Resolve(0x06, 0x01, true, base.Add(10*time.Second)); ok {
		t.Fatalf("late ack matched %q after timeout", got)
	}
	mustStatus(t, tr, h, StatusWarning)
}

func TestSweep_OnlyStaleExpire(t *testing.T) {
	tr := New(3*time.Second, DefaultMaxResolved)
	hOld := tr.Submit(0x06, 0x01, nil, ModeSet, base)
	hNew := tr.Submit(0x06, 0x01, nil, ModeSet, base.Add(2*time.Second))

	expired := tr.Sweep(base.Add(4 * time.Second))
	if len(expired) != 1 || expired[0] != hOld {
		t.Fatalf("Sweep() = %v want [%s]", expired, hOld)
	}
	mustStatus(t, tr, hNew, StatusPending)
}

// The resolved backlog is bounded, evicting oldest first; pending commands
// are never evicted no matter how many accumulate.
func TestBacklogEviction(t *testing.T) {
	tr := New(DefaultTimeout, 2)

	var handles []string
	for i := 0; i < 3; i++ {
		h := tr.Submit(0x06, 0x08, nil, ModePoll, base)
		tr.Resolve(0x06, 0x08, true, base.Add(time.Second))
		handles = append(handles, h)
	}

	if _, ok := tr.Status(handles[0]); ok {
		t.Fatalf("oldest resolved command survived eviction")
	}
	mustStatus(t, tr, handles[1], StatusConfirmed)
	mustStatus(t, tr, handles[2], StatusConfirmed)

	for i := 0; i < 10; i++ {
		tr.Submit(0x06, 0x01, nil, ModeSet, base)
	}
	if got := tr.PendingCount(); got != 10 {
		t.Fatalf("PendingCount() = %d want 10", got)
	}
}

func TestCommands_Snapshot(t *testing.T) {
	tr := New(DefaultTimeout, DefaultMaxResolved)
	payload := []byte{0xF0, 0x04, 0x01, 0x01, 0x00, 0x01, 0x01, 0x00}
	hSet := tr.Submit(0x06, 0x01, payload, ModeSet, base)
	hPoll := tr.Submit(0x06, 0x00, nil, ModePoll, base.Add(time.Millisecond))
	tr.Resolve(0x06, 0x01, true, base.Add(time.Second))

	cmds := tr.Commands()
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	// Pending first, then resolved.
	if cmds[0].Handle != hPoll || cmds[0].Status != StatusPending || cmds[0].Mode != ModePoll {
		t.Fatalf("cmds[0] = %+v, want pending poll", cmds[0])
	}
	if cmds[1].Handle != hSet || cmds[1].Status != StatusConfirmed || cmds[1].Outcome != OutcomeAck {
		t.Fatalf("cmds[1] = %+v, want confirmed set", cmds[1])
	}

	// Snapshots do not alias tracker state.
	cmds[1].Payload[0] = 0xFF
	if got := tr.Commands(); got[1].Payload[0] != 0xF0 {
		t.Fatalf("snapshot mutation leaked into tracker state")
	}
}

func TestZeroOptionsUseDefaults(t *testing.T) {
	tr := New(0, 0)
	if tr.timeout != DefaultTimeout || tr.maxResolved != DefaultMaxResolved {
		t.Fatalf("New(0, 0) = timeout %v backlog %d, want defaults", tr.timeout, tr.maxResolved)
	}
}
