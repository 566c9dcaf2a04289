/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	layout.go: data-described payload layouts for UBX messages.
*/
package ubx

// FieldType enumerates the wire representations a payload field can have.
// All multi-byte fields are little endian.
type FieldType int

const (
	U1 FieldType = iota // unsigned 8 bit
	U2                  // unsigned 16 bit
	U4                  // unsigned 32 bit
	U8                  // unsigned 64 bit
	I1                  // signed 8 bit
	I2                  // signed 16 bit
	I4                  // signed 32 bit
	I8                  // signed 64 bit
	X1                  // 8 bit bitfield
	X2                  // 16 bit bitfield
	X4                  // 32 bit bitfield
	CH                  // fixed-length char array, Len bytes
)

// Field describes a single payload field. A non-zero Scale marks the field
// as fixed-point: the raw integer is multiplied by Scale and decoded as a
// float64.
type Field struct {
	Name  string
	Type  FieldType
	Len   int     // byte length, CH fields only
	Scale float64 // fixed-point scale factor, 0 for none
}

// Layout is the ordered field description for one (class, id). When Group
// is non-empty the group fields are read repeatedly after Fields; the
// repeat count is the decoded value of the earlier field named CountField.
// Layouts are immutable and registered once at package init.
type Layout struct {
	Name       string
	Fields     []Field
	CountField string
	Group      []Field
}

func (f Field) size() int {
	switch f.Type {
	case U1, I1, X1:
		return 1
	case U2, I2, X2:
		return 2
	case U4, I4, X4:
		return 4
	case U8, I8:
		return 8
	case CH:
		return f.Len
	}
	return 0
}

// FixedSize returns the payload length of the non-repeating part of the
// layout plus n repetitions of the group.
func (l Layout) FixedSize(n int) int {
	total := 0
	for _, f := range l.Fields {
		total += f.size()
	}
	group := 0
	for _, f := range l.Group {
		group += f.size()
	}
	return total + n*group
}
