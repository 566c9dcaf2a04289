/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	transport.go: byte transports the session can run on: a serial port
	with baud-rate probing, or a recorded capture for playback.
*/
package session

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/ratelimit"

	"gnsshub/common"
)

// Transport is an ordered byte stream with no framing. Read returning
// (0, nil) means "no data now", not an error; any returned error is fatal
// to the session.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

type serialTransport struct {
	p *serial.Port
}

func (s *serialTransport) Read(p []byte) (int, error) {
	return s.p.Read(p)
}

func (s *serialTransport) Write(p []byte) (int, error) {
	n, err := s.p.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.p.Flush()
}

func (s *serialTransport) Close() error {
	return s.p.Close()
}

// OpenSerial opens a serial port, probing the candidate baud rates until a
// read yields a line with a valid NMEA checksum. Probing is rate limited so
// a quiet receiver gets a full read timeout per baud rate.
func OpenSerial(port string, baudRates []int) (Transport, error) {
	if _, err := os.Stat(port); err != nil {
		return nil, fmt.Errorf("session: serial port %s: %w", port, err)
	}

	rl := ratelimit.New(1, ratelimit.Per(2*time.Second))
	for _, baud := range baudRates {
		rl.Take()

		serialConfig := serial.Config{Name: port, Baud: baud, ReadTimeout: time.Millisecond * 2500}
		p, err := serial.OpenPort(&serialConfig)
		if err != nil {
			continue
		}

		buffer := make([]byte, 10000)
		n, err := p.Read(buffer)
		if n != 0 && err == nil {
			for _, line := range strings.Split(string(buffer[:n]), "\n") {
				if _, ok := common.ValidateNMEAChecksum(strings.TrimSpace(line)); ok {
					log.Printf("Detected serial port %s with baud %d", port, baud)
					return &serialTransport{p: p}, nil
				}
			}
		}
		p.Close()
	}
	return nil, fmt.Errorf("session: no valid NMEA traffic on %s at any candidate baud rate", port)
}

type playbackTransport struct {
	f *os.File
}

// OpenPlayback replays a recorded raw capture through the same framing and
// decoding path a live port uses. Writes are accepted and dropped, since a
// capture cannot acknowledge commands.
func OpenPlayback(path string) (Transport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: playback %s: %w", path, err)
	}
	return &playbackTransport{f: f}, nil
}

func (t *playbackTransport) Read(p []byte) (int, error) {
	return t.f.Read(p)
}

func (t *playbackTransport) Write(p []byte) (int, error) {
	log.Printf("session: playback: dropping %d byte outbound command", len(p))
	return len(p), nil
}

func (t *playbackTransport) Close() error {
	return t.f.Close()
}
