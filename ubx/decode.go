/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	decode.go: registry-driven payload decoding and encoding.
*/
package ubx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownMessage is returned together with a raw message when no
	// layout is registered for the (class, id). The message must not be
	// dropped; callers may still want class/id and raw bytes for logging.
	ErrUnknownMessage = errors.New("ubx: unknown message")

	// ErrPayloadLength is returned when the decoded field bytes do not
	// exactly equal the declared payload length. The mismatch is a hard
	// failure, never silently truncated or zero padded, because it is the
	// main signal of a registry/firmware version mismatch.
	ErrPayloadLength = errors.New("ubx: payload length mismatch")
)

// Message is a decoded UBX payload. For registered messages Fields maps
// field names to typed values; repeat group fields are keyed name_NN with a
// 1-based group index. Unknown messages carry only class/id and raw payload.
type Message struct {
	Class   byte
	ID      byte
	Name    string
	Fields  map[string]any
	Payload []byte
	Unknown bool
}

func unknownName(class, id byte) string {
	return fmt.Sprintf("UNKNOWN-%02X-%02X", class, id)
}

// GroupKey returns the map key of a repeat group field for the given
// 1-based iteration.
func GroupKey(name string, i int) string {
	return fmt.Sprintf("%s_%02d", name, i)
}

// Decode looks up (class, id) in the registry and decodes payload per the
// registered layout, expanding repeating groups. The returned message is
// non-nil even on ErrUnknownMessage.
func Decode(class, id byte, payload []byte) (*Message, error) {
	msg := &Message{
		Class:   class,
		ID:      id,
		Payload: append([]byte(nil), payload...),
	}

	layout, ok := LookupLayout(class, id)
	if !ok {
		msg.Name = unknownName(class, id)
		msg.Unknown = true
		return msg, fmt.Errorf("%w: class=0x%02X id=0x%02X len=%d", ErrUnknownMessage, class, id, len(payload))
	}
	msg.Name = layout.Name
	msg.Fields = make(map[string]any, len(layout.Fields)+8*len(layout.Group))

	off := 0
	readField := func(f Field, key string) error {
		n := f.size()
		if off+n > len(payload) {
			return fmt.Errorf("%w: %s: field %s needs %d bytes at offset %d, payload is %d",
				ErrPayloadLength, layout.Name, key, n, off, len(payload))
		}
		msg.Fields[key] = decodeValue(f, payload[off:off+n])
		off += n
		return nil
	}

	count := -1
	for _, f := range layout.Fields {
		if err := readField(f, f.Name); err != nil {
			return msg, err
		}
		if f.Name == layout.CountField {
			c, err := fieldAsInt(msg.Fields[f.Name])
			if err != nil {
				return msg, fmt.Errorf("ubx: %s: count field %s: %w", layout.Name, f.Name, err)
			}
			count = c
		}
	}

	if len(layout.Group) > 0 {
		if count < 0 {
			return msg, fmt.Errorf("ubx: %s: repeat group without count field %q", layout.Name, layout.CountField)
		}
		for i := 1; i <= count; i++ {
			for _, f := range layout.Group {
				if err := readField(f, GroupKey(f.Name, i)); err != nil {
					return msg, err
				}
			}
		}
	}

	if off != len(payload) {
		return msg, fmt.Errorf("%w: %s: decoded %d of %d payload bytes",
			ErrPayloadLength, layout.Name, off, len(payload))
	}
	return msg, nil
}

func decodeValue(f Field, data []byte) any {
	if f.Scale != 0 {
		return float64(rawSigned(f, data)) * f.Scale
	}
	switch f.Type {
	case U1:
		return data[0]
	case U2:
		return binary.LittleEndian.Uint16(data)
	case U4:
		return binary.LittleEndian.Uint32(data)
	case U8:
		return binary.LittleEndian.Uint64(data)
	case I1:
		return int8(data[0])
	case I2:
		return int16(binary.LittleEndian.Uint16(data))
	case I4:
		return int32(binary.LittleEndian.Uint32(data))
	case I8:
		return int64(binary.LittleEndian.Uint64(data))
	case X1:
		return data[0]
	case X2:
		return binary.LittleEndian.Uint16(data)
	case X4:
		return binary.LittleEndian.Uint32(data)
	case CH:
		return string(bytes.TrimRight(data, "\x00"))
	}
	return nil
}

// rawSigned reads the field as a signed integer wide enough for any of the
// supported widths, for fixed-point scaling.
func rawSigned(f Field, data []byte) int64 {
	switch f.Type {
	case U1, X1:
		return int64(data[0])
	case U2, X2:
		return int64(binary.LittleEndian.Uint16(data))
	case U4, X4:
		return int64(binary.LittleEndian.Uint32(data))
	case U8:
		return int64(binary.LittleEndian.Uint64(data))
	case I1:
		return int64(int8(data[0]))
	case I2:
		return int64(int16(binary.LittleEndian.Uint16(data)))
	case I4:
		return int64(int32(binary.LittleEndian.Uint32(data)))
	case I8:
		return int64(binary.LittleEndian.Uint64(data))
	}
	return 0
}

func fieldAsInt(v any) (int, error) {
	switch n := v.(type) {
	case byte:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("value %v (%T) is not usable as a repeat count", v, v)
}

// EncodePayload builds a payload for (class, id) from named field values,
// the exact inverse of Decode. Group fields are looked up under their
// GroupKey names; the repeat count is taken from the layout's count field
// value. Missing fields encode as zero.
func EncodePayload(class, id byte, fields map[string]any) ([]byte, error) {
	layout, ok := LookupLayout(class, id)
	if !ok {
		return nil, fmt.Errorf("%w: class=0x%02X id=0x%02X", ErrUnknownMessage, class, id)
	}

	var buf bytes.Buffer
	count := 0
	for _, f := range layout.Fields {
		if err := writeValue(&buf, f, fields[f.Name]); err != nil {
			return nil, fmt.Errorf("ubx: %s: field %s: %w", layout.Name, f.Name, err)
		}
		if f.Name == layout.CountField {
			c, err := fieldAsInt(fields[f.Name])
			if err != nil {
				return nil, fmt.Errorf("ubx: %s: count field %s: %w", layout.Name, f.Name, err)
			}
			count = c
		}
	}
	for i := 1; i <= count; i++ {
		for _, f := range layout.Group {
			key := GroupKey(f.Name, i)
			if err := writeValue(&buf, f, fields[key]); err != nil {
				return nil, fmt.Errorf("ubx: %s: field %s: %w", layout.Name, key, err)
			}
		}
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, f Field, v any) error {
	n := f.size()
	if f.Type == CH {
		s, _ := v.(string)
		if len(s) > n {
			return fmt.Errorf("char value %q longer than %d bytes", s, n)
		}
		buf.WriteString(s)
		for i := len(s); i < n; i++ {
			buf.WriteByte(0)
		}
		return nil
	}

	var raw int64
	if f.Scale != 0 {
		fv, ok := v.(float64)
		if v != nil && !ok {
			return fmt.Errorf("scaled value %v (%T) is not a float64", v, v)
		}
		raw = int64(math.Round(fv / f.Scale))
	} else if v != nil {
		c, err := fieldAsInt64(v)
		if err != nil {
			return err
		}
		raw = c
	}

	tmp := make([]byte, 8)
	binary.LittleEndian.PutUint64(tmp, uint64(raw))
	buf.Write(tmp[:n])
	return nil
}

func fieldAsInt64(v any) (int64, error) {
	switch n := v.(type) {
	case byte:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("value %v (%T) is not encodable", v, v)
}
