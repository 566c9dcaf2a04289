/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	nmea.go: NMEA checksum helpers shared by the framer and the command path.
*/
package common

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateNMEAChecksum determines if a string is a properly formatted NMEA
// sentence with a valid checksum.
//
// If the input is valid, it returns the sentence body stripped of the "$"
// token and checksum, along with 'true'. If the input is the incorrect
// format, or the checksum is missing/invalid, a reason string and 'false'
// are returned.
//
// Checksum is calculated as XOR of all bytes between "$" and "*".
func ValidateNMEAChecksum(s string) (string, bool) {
	if !(strings.HasPrefix(s, "$") && strings.Contains(s, "*")) {
		return "", false
	}

	// strip leading "$" and split at "*"
	sSplit := strings.SplitN(strings.TrimPrefix(s, "$"), "*", 2)
	sOut := sSplit[0]
	sCs := sSplit[1]

	if len(sCs) < 2 {
		return "Missing checksum. Fewer than two bytes after asterisk", false
	}

	cs, err := strconv.ParseUint(sCs[:2], 16, 8)
	if err != nil {
		return "Invalid checksum", false
	}

	csCalc := NMEAChecksum(sOut)
	if csCalc != byte(cs) {
		return fmt.Sprintf("Checksum failed. Calculated %#X; expected %#X", csCalc, cs), false
	}

	return sOut, true
}

// NMEAChecksum returns the XOR of all bytes of the sentence body (the text
// between "$" and "*", neither included).
func NMEAChecksum(body string) byte {
	cs := byte(0)
	for i := range body {
		cs = cs ^ body[i]
	}
	return cs
}

// MakeNMEACmd builds a complete NMEA sentence including "$", checksum and
// CRLF from a bare sentence body, ready to be written to a device.
func MakeNMEACmd(cmd string) []byte {
	return []byte(fmt.Sprintf("$%s*%02X\x0d\x0a", cmd, NMEAChecksum(cmd)))
}
