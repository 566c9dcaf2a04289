/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.
*/
package nmea

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode_GGA(t *testing.T) {
	s, err := Decode("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if s.Talker != "GP" || s.Type != "GGA" {
		t.Fatalf("talker=%q type=%q want GP GGA", s.Talker, s.Type)
	}
	want := []string{"123519", "4807.038", "N", "01131.000", "E", "1", "08", "0.9", "545.4", "M", "46.9", "M", "", ""}
	if !reflect.DeepEqual(s.Fields, want) {
		t.Fatalf("fields=%q want %q", s.Fields, want)
	}
}

func TestDecode_Proprietary(t *testing.T) {
	s, err := Decode("PSRF103,00,6,00,0")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if s.Talker != "P" || s.Type != "SRF103" {
		t.Fatalf("talker=%q type=%q want P SRF103", s.Talker, s.Type)
	}
	if len(s.Fields) != 4 {
		t.Fatalf("got %d fields, want 4", len(s.Fields))
	}
}

func TestDecode_NoFields(t *testing.T) {
	s, err := Decode("GNTXT")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if s.Talker != "GN" || s.Type != "TXT" || len(s.Fields) != 0 {
		t.Fatalf("got %+v, want GN TXT with no fields", s)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, body := range []string{"", "GP", "X,1,2", ",a,b"} {
		if s, err := Decode(body); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q) = %+v, %v; want ErrMalformed", body, s, err)
		}
	}
}
