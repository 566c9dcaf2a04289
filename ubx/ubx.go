/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	ubx.go: UBX binary protocol constants, checksum and frame encoding.
*/
package ubx

// Frame layout: sync1, sync2, class, id, little-endian payload length (2
// bytes), payload, checksum A, checksum B. See p. 95 of the u-blox M8
// Receiver Description.
const (
	Sync1 = 0xB5
	Sync2 = 0x62

	// Fixed per-frame overhead: 2 sync + class + id + 2 length + 2 checksum.
	FrameOverhead = 8
)

// Message classes and the ACK message IDs used by the command tracker.
const (
	ClassNAV = 0x01
	ClassRXM = 0x02
	ClassINF = 0x04
	ClassACK = 0x05
	ClassCFG = 0x06
	ClassMON = 0x0A

	IDAckNak = 0x00 // ACK-NAK: message not acknowledged
	IDAckAck = 0x01 // ACK-ACK: message acknowledged
)

/*
	Checksum()
		returns the two-byte Fletcher algorithm checksum of byte array msg.
		Each accumulator is the sum, mod 256, of the previous value plus the
		next byte, seeded at zero, computed over class+id+length+payload.
		See p. 97 of the u-blox M8 Receiver Description.
*/
func Checksum(msg []byte) (ckA, ckB byte) {
	for i := 0; i < len(msg); i++ {
		ckA = ckA + msg[i]
		ckB = ckB + ckA
	}
	return ckA, ckB
}

/*
	Encode()
		creates a UBX-formatted package consisting of two sync characters,
		class, ID, payload length in bytes (2-byte little endian), payload,
		and checksum.
*/
func Encode(class, id byte, payload []byte) []byte {
	msglen := uint16(len(payload))
	ret := make([]byte, 6, FrameOverhead+len(payload))
	ret[0] = Sync1
	ret[1] = Sync2
	ret[2] = class
	ret[3] = id
	ret[4] = byte(msglen & 0xFF)
	ret[5] = byte((msglen >> 8) & 0xFF)
	ret = append(ret, payload...)
	ckA, ckB := Checksum(ret[2:])
	ret = append(ret, ckA, ckB)
	return ret
}
