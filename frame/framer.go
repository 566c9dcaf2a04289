/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	framer.go: splits a raw, arbitrarily chunked byte stream into verified
	NMEA and UBX frames.
*/
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"gnsshub/common"
	"gnsshub/ubx"
)

// Protocol tags a verified frame.
type Protocol int

const (
	ProtocolNMEA Protocol = iota + 1
	ProtocolUBX
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNMEA:
		return "NMEA"
	case ProtocolUBX:
		return "UBX"
	}
	return "?"
}

const (
	nmeaStart = '$'

	// NMEA 0183 caps sentences at 82 characters; allow slack for receivers
	// that run long before declaring the sentence unterminated.
	maxSentenceLen = 128

	// Longest UBX payload we accept. Larger declared lengths are treated
	// as corruption so a flipped length byte cannot stall the stream.
	maxPayloadLen = 4096
)

var (
	// ErrBadLength marks implausible declared or implied frame lengths.
	ErrBadLength = errors.New("frame: bad length")

	// ErrChecksum marks sync-matched frames whose checksum validation failed.
	ErrChecksum = errors.New("frame: checksum mismatch")
)

// Frame is a verified, protocol-tagged byte span. It is immutable once
// emitted; Raw and Payload are copies owned by the receiver.
type Frame struct {
	Protocol Protocol
	Raw      []byte

	// UBX frames only.
	Class   byte
	ID      byte
	Payload []byte

	// NMEA frames only: the verified body between "$" and "*".
	Text string
}

// Event is one framing outcome: either a verified frame or a framing error.
// Discarded counts the bytes dropped since the previous event (unrecognized
// leading bytes plus, for errors, the slipped sync byte).
type Event struct {
	Frame     *Frame
	Err       error
	Discarded int
}

// Framer buffers stream bytes across Feed calls and scans them for NMEA and
// UBX sync patterns. After a failed validation it resynchronizes by a
// single-byte slip, not by skipping the whole tentative frame, so a valid
// frame starting inside a corrupt one is not swallowed.
type Framer struct {
	buf            []byte
	pendingDiscard int
}

func NewFramer() *Framer {
	return &Framer{}
}

// Buffered returns the number of bytes held for the next Feed call.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Discarded returns the count of dropped bytes not yet attributed to an
// event. It is attached to the next event emitted.
func (f *Framer) Discarded() int {
	return f.pendingDiscard
}

// Feed appends data to the internal buffer and returns the events for every
// complete frame or framing error found. Every consumed byte ends up either
// in exactly one emitted frame or in an event's Discarded count; bytes of a
// not-yet-complete frame stay buffered.
func (f *Framer) Feed(data []byte) []Event {
	f.buf = append(f.buf, data...)
	var events []Event

	for {
		// Drop unrecognized bytes up to the next possible sync.
		skip := 0
		for skip < len(f.buf) && f.buf[skip] != nmeaStart && f.buf[skip] != ubx.Sync1 {
			skip++
		}
		if skip > 0 {
			f.pendingDiscard += skip
			f.buf = f.buf[skip:]
		}
		if len(f.buf) == 0 {
			return events
		}

		var (
			ev       *Event
			consumed int
			wait     bool
		)
		if f.buf[0] == nmeaStart {
			ev, consumed, wait = f.scanNMEA()
		} else {
			ev, consumed, wait = f.scanUBX()
		}
		if wait {
			return events
		}

		if ev == nil {
			// Sync candidate that never was one; drop silently.
			f.pendingDiscard += consumed
			f.buf = f.buf[consumed:]
			continue
		}

		ev.Discarded = f.pendingDiscard
		if ev.Err != nil {
			// Single-byte slip past the failed sync match.
			ev.Discarded++
			consumed = 1
		}
		f.pendingDiscard = 0
		f.buf = f.buf[consumed:]
		events = append(events, *ev)
	}
}

// scanNMEA runs with buf[0] == '$'. A sentence is complete at its LF
// terminator; the 2-hex-digit checksum after '*' is the XOR of all bytes
// between '$' and '*'.
func (f *Framer) scanNMEA() (ev *Event, consumed int, wait bool) {
	end := -1
	for i := 1; i < len(f.buf); i++ {
		if f.buf[i] == '\n' {
			end = i
			break
		}
		// A new sync inside an unterminated sentence means the terminator
		// was lost; give up on this one early.
		if f.buf[i] == ubx.Sync1 || f.buf[i] == nmeaStart {
			return &Event{Err: fmt.Errorf("%w: sentence interrupted after %d bytes", ErrBadLength, i)}, 0, false
		}
	}
	if end < 0 {
		if len(f.buf) > maxSentenceLen {
			return &Event{Err: fmt.Errorf("%w: unterminated sentence of %d bytes", ErrBadLength, len(f.buf))}, 0, false
		}
		return nil, 0, true
	}

	line := string(f.buf[:end+1])
	body, ok := common.ValidateNMEAChecksum(strings.TrimRight(line, "\r\n"))
	if !ok {
		reason := body
		if reason == "" {
			reason = "missing checksum delimiter"
		}
		return &Event{Err: fmt.Errorf("%w: %s", ErrChecksum, reason)}, 0, false
	}

	fr := &Frame{
		Protocol: ProtocolNMEA,
		Raw:      append([]byte(nil), f.buf[:end+1]...),
		Text:     body,
	}
	return &Event{Frame: fr}, end + 1, false
}

// scanUBX runs with buf[0] == 0xB5. Frame layout: sync(2), class, id,
// little-endian length(2), payload, ck_a, ck_b; the checksum covers
// class+id+length+payload.
func (f *Framer) scanUBX() (ev *Event, consumed int, wait bool) {
	if len(f.buf) < 2 {
		return nil, 0, true
	}
	if f.buf[1] != ubx.Sync2 {
		// 0xB5 without 0x62 is not a sync match at all.
		return nil, 1, false
	}
	if len(f.buf) < 6 {
		return nil, 0, true
	}

	payLen := int(binary.LittleEndian.Uint16(f.buf[4:6]))
	if payLen > maxPayloadLen {
		return &Event{Err: fmt.Errorf("%w: declared payload of %d bytes", ErrBadLength, payLen)}, 0, false
	}
	total := ubx.FrameOverhead + payLen
	if len(f.buf) < total {
		return nil, 0, true
	}

	ckA, ckB := ubx.Checksum(f.buf[2 : 6+payLen])
	if ckA != f.buf[total-2] || ckB != f.buf[total-1] {
		return &Event{Err: fmt.Errorf("%w: class=0x%02X id=0x%02X want %02X%02X got %02X%02X",
			ErrChecksum, f.buf[2], f.buf[3], ckA, ckB, f.buf[total-2], f.buf[total-1])}, 0, false
	}

	fr := &Frame{
		Protocol: ProtocolUBX,
		Raw:      append([]byte(nil), f.buf[:total]...),
		Class:    f.buf[2],
		ID:       f.buf[3],
		Payload:  append([]byte(nil), f.buf[6:6+payLen]...),
	}
	return &Event{Frame: fr}, total, false
}
