/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	nmea.go: NMEA sentence decoding. Checksum validation happens in the
	framer; this layer only splits an already verified sentence body.
*/
package nmea

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for sentence bodies that cannot be split into a
// talker/sentence identifier and field list.
var ErrMalformed = errors.New("nmea: malformed sentence")

// Sentence is a decoded NMEA sentence. Fields are kept as raw strings; type
// coercion is up to per-sentence consumers.
type Sentence struct {
	Talker string   // talker identifier, e.g. "GP", "GN" ("P" for proprietary)
	Type   string   // sentence type, e.g. "GGA", "RMC"
	Fields []string // data fields, in wire order, excluding the address field
	Raw    string   // verified body between "$" and "*"
}

// Decode splits a verified sentence body (the text between "$" and "*",
// neither included) into talker, sentence type and raw string fields.
func Decode(body string) (*Sentence, error) {
	parts := strings.Split(body, ",")
	addr := parts[0]
	if len(addr) < 3 {
		return nil, fmt.Errorf("%w: address field %q too short", ErrMalformed, addr)
	}

	s := &Sentence{
		Fields: parts[1:],
		Raw:    body,
	}
	// Proprietary sentences use the single-character talker "P".
	if strings.HasPrefix(addr, "P") {
		s.Talker = "P"
		s.Type = addr[1:]
	} else {
		s.Talker = addr[:2]
		s.Type = addr[2:]
	}
	if s.Type == "" {
		return nil, fmt.Errorf("%w: empty sentence type in %q", ErrMalformed, addr)
	}
	return s, nil
}
