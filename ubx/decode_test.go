/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.
*/
package ubx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// patternPayload fills n bytes with a fixed non-zero pattern so round trips
// exercise every field with distinct values.
func patternPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + 3)
	}
	return p
}

func TestDecode_AckAck(t *testing.T) {
	msg, err := Decode(ClassACK, IDAckAck, []byte{0x06, 0x01})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.Name != "ACK-ACK" {
		t.Fatalf("name=%q want ACK-ACK", msg.Name)
	}
	if msg.Fields["clsID"] != byte(0x06) || msg.Fields["msgID"] != byte(0x01) {
		t.Fatalf("fields=%v want clsID=0x06 msgID=0x01", msg.Fields)
	}
}

func TestDecode_Posllh(t *testing.T) {
	p := make([]byte, 28)
	binary.LittleEndian.PutUint32(p[0:], 123456)                    // iTOW
	binary.LittleEndian.PutUint32(p[4:], uint32(int32(113312500)))  // lon, 1e-7 deg
	lat := int32(-481234567)
	binary.LittleEndian.PutUint32(p[8:], uint32(lat)) // lat
	binary.LittleEndian.PutUint32(p[12:], uint32(int32(54540)))     // height, mm
	msg, err := Decode(ClassNAV, 0x02, p)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.Fields["iTOW"] != uint32(123456) {
		t.Fatalf("iTOW=%v want 123456", msg.Fields["iTOW"])
	}
	if msg.Fields["lon"] != float64(113312500)*1e-7 {
		t.Fatalf("lon=%v want %v", msg.Fields["lon"], float64(113312500)*1e-7)
	}
	if msg.Fields["lat"] != float64(-481234567)*1e-7 {
		t.Fatalf("lat=%v want %v", msg.Fields["lat"], float64(-481234567)*1e-7)
	}
	if msg.Fields["height"] != int32(54540) {
		t.Fatalf("height=%v want 54540", msg.Fields["height"])
	}
}

// Every fixed-size layout must decode a pattern payload of its exact length
// and encode it back byte for byte.
func TestDecode_EncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		class byte
		id    byte
		size  int
	}{
		{"NAV-POSLLH", ClassNAV, 0x02, 28},
		{"NAV-STATUS", ClassNAV, 0x03, 16},
		{"NAV-DOP", ClassNAV, 0x04, 18},
		{"NAV-PVT", ClassNAV, 0x07, 92},
		{"NAV-VELNED", ClassNAV, 0x12, 36},
		{"CFG-PRT", ClassCFG, 0x00, 20},
		{"CFG-MSG", ClassCFG, 0x01, 8},
		{"CFG-RATE", ClassCFG, 0x08, 6},
		{"CFG-NAV5", ClassCFG, 0x24, 36},
		{"MON-HW", ClassMON, 0x09, 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout, ok := LookupLayout(tc.class, tc.id)
			if !ok {
				t.Fatalf("no layout for %s", tc.name)
			}
			if got := layout.FixedSize(0); got != tc.size {
				t.Fatalf("FixedSize(0)=%d want %d", got, tc.size)
			}

			payload := patternPayload(tc.size)
			msg, err := Decode(tc.class, tc.id, payload)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if msg.Name != tc.name {
				t.Fatalf("name=%q want %q", msg.Name, tc.name)
			}

			back, err := EncodePayload(tc.class, tc.id, msg.Fields)
			if err != nil {
				t.Fatalf("EncodePayload() error: %v", err)
			}
			if !bytes.Equal(back, payload) {
				t.Fatalf("round trip mismatch:\n in  % X\n out % X", payload, back)
			}
		})
	}
}

func TestDecode_RepeatGroup(t *testing.T) {
	var p []byte
	head := make([]byte, 8)
	binary.LittleEndian.PutUint32(head[0:], 1000) // iTOW
	head[4] = 1                                   // version
	head[5] = 2                                   // numSvs
	p = append(p, head...)

	sv := func(gnssId, svId, cno byte, elev int8, azim, prResRaw int16, flags uint32) []byte {
		b := make([]byte, 12)
		b[0], b[1], b[2], b[3] = gnssId, svId, cno, byte(elev)
		binary.LittleEndian.PutUint16(b[4:], uint16(azim))
		binary.LittleEndian.PutUint16(b[6:], uint16(prResRaw))
		binary.LittleEndian.PutUint32(b[8:], flags)
		return b
	}
	p = append(p, sv(0, 5, 40, 63, 180, -25, 0x17)...)
	p = append(p, sv(6, 12, 33, -10, 300, 4, 0)...)

	msg, err := Decode(ClassNAV, 0x35, p)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.Name != "NAV-SAT" {
		t.Fatalf("name=%q want NAV-SAT", msg.Name)
	}
	if msg.Fields["numSvs"] != byte(2) {
		t.Fatalf("numSvs=%v want 2", msg.Fields["numSvs"])
	}
	if msg.Fields[GroupKey("svId", 1)] != byte(5) || msg.Fields[GroupKey("svId", 2)] != byte(12) {
		t.Fatalf("svId fields=%v", msg.Fields)
	}
	if msg.Fields[GroupKey("elev", 2)] != int8(-10) {
		t.Fatalf("elev_02=%v want -10", msg.Fields[GroupKey("elev", 2)])
	}
	if msg.Fields[GroupKey("azim", 2)] != int16(300) {
		t.Fatalf("azim_02=%v want 300", msg.Fields[GroupKey("azim", 2)])
	}
	if msg.Fields[GroupKey("prRes", 1)] != float64(-25)*0.1 {
		t.Fatalf("prRes_01=%v want %v", msg.Fields[GroupKey("prRes", 1)], float64(-25)*0.1)
	}
	if msg.Fields[GroupKey("flags", 1)] != uint32(0x17) {
		t.Fatalf("flags_01=%v want 0x17", msg.Fields[GroupKey("flags", 1)])
	}

	back, err := EncodePayload(ClassNAV, 0x35, msg.Fields)
	if err != nil {
		t.Fatalf("EncodePayload() error: %v", err)
	}
	if !bytes.Equal(back, p) {
		t.Fatalf("round trip mismatch:\n in  % X\n out % X", p, back)
	}
}

// The payload length invariant is exact: too short, too long, and a group
// count that disagrees with the byte count are all hard errors.
func TestDecode_PayloadLengthMismatch(t *testing.T) {
	for _, n := range []int{27, 29} {
		msg, err := Decode(ClassNAV, 0x02, patternPayload(n))
		if !errors.Is(err, ErrPayloadLength) {
			t.Fatalf("Decode(%d bytes) error = %v, want ErrPayloadLength", n, err)
		}
		if msg == nil || msg.Name != "NAV-POSLLH" {
			t.Fatalf("message = %+v, want named partial message", msg)
		}
	}
	if _, err := Decode(ClassNAV, 0x02, patternPayload(28)); err != nil {
		t.Fatalf("Decode(28 bytes) error: %v", err)
	}

	// NAV-SAT headers claiming more or fewer groups than the bytes carry.
	layout, _ := LookupLayout(ClassNAV, 0x35)
	short := patternPayload(layout.FixedSize(2))
	short[5] = 3 // numSvs
	if _, err := Decode(ClassNAV, 0x35, short); !errors.Is(err, ErrPayloadLength) {
		t.Fatalf("count 3 with 2 groups: error = %v, want ErrPayloadLength", err)
	}
	long := patternPayload(layout.FixedSize(2))
	long[5] = 1
	if _, err := Decode(ClassNAV, 0x35, long); !errors.Is(err, ErrPayloadLength) {
		t.Fatalf("count 1 with 2 groups: error = %v, want ErrPayloadLength", err)
	}
}

// Unknown (class, id) pairs still produce a message so callers can log the
// raw bytes; only the error tells them apart.
func TestDecode_Unknown(t *testing.T) {
	payload := []byte{0xDE, 0xAD}
	msg, err := Decode(0x99, 0x42, payload)
	if !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("error = %v, want ErrUnknownMessage", err)
	}
	if msg == nil || !msg.Unknown {
		t.Fatalf("message = %+v, want Unknown", msg)
	}
	if msg.Name != "UNKNOWN-99-42" {
		t.Fatalf("name=%q want UNKNOWN-99-42", msg.Name)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload=%x want %x", msg.Payload, payload)
	}
}

func TestEncodePayload_MissingFieldsZero(t *testing.T) {
	p, err := EncodePayload(ClassCFG, 0x01, map[string]any{
		"msgClass":  0xF0,
		"msgID":     0x04,
		"rateUART1": 1,
	})
	if err != nil {
		t.Fatalf("EncodePayload() error: %v", err)
	}
	want := []byte{0xF0, 0x04, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(p, want) {
		t.Fatalf("payload=% X want % X", p, want)
	}
}

func TestEncodePayload_GroupFromCount(t *testing.T) {
	p, err := EncodePayload(ClassNAV, 0x30, map[string]any{
		"iTOW":              uint32(500),
		"numCh":             1,
		GroupKey("chn", 1):  1,
		GroupKey("svid", 1): 7,
		GroupKey("cno", 1):  42,
		GroupKey("elev", 1): int8(-5),
		GroupKey("azim", 1): int16(90),
	})
	if err != nil {
		t.Fatalf("EncodePayload() error: %v", err)
	}
	layout, _ := LookupLayout(ClassNAV, 0x30)
	if len(p) != layout.FixedSize(1) {
		t.Fatalf("len=%d want %d", len(p), layout.FixedSize(1))
	}
	msg, err := Decode(ClassNAV, 0x30, p)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.Fields[GroupKey("svid", 1)] != byte(7) || msg.Fields[GroupKey("azim", 1)] != int16(90) {
		t.Fatalf("fields=%v", msg.Fields)
	}
}

func TestMessageName(t *testing.T) {
	if got := MessageName(ClassNAV, 0x07); got != "NAV-PVT" {
		t.Fatalf("MessageName(NAV, 0x07) = %q want NAV-PVT", got)
	}
	if got := MessageName(0x77, 0x01); got != "UNKNOWN-77-01" {
		t.Fatalf("MessageName(0x77, 0x01) = %q want UNKNOWN-77-01", got)
	}
}
