// Package uuid provides UUID v7 generation.
// UUID v7 is sortable by creation time, which keeps audit indexes append-friendly.
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// UUID represents a UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 (RFC 9562):
// 48 bits of millisecond UNIX timestamp followed by 74 random bits,
// with the version nibble in byte 6 and the variant bits in byte 8.
func NewV7() UUID {
	var u UUID

	now := time.Now().UnixMilli()
	u[0] = byte(now >> 40)
	u[1] = byte(now >> 32)
	u[2] = byte(now >> 24)
	u[3] = byte(now >> 16)
	u[4] = byte(now >> 8)
	u[5] = byte(now)

	var random [10]byte
	if _, err := rand.Read(random[:]); err != nil {
		// crypto/rand only fails if the OS entropy source is broken;
		// fall back to the timestamp so IDs stay unique-ish rather than zero.
		binary.BigEndian.PutUint64(random[:8], uint64(time.Now().UnixNano()))
	}
	copy(u[6:], random[:])

	// Version 0111 in the high nibble of byte 6, variant 10xxxxxx in byte 8.
	u[6] = 0x70 | (u[6] & 0x0f)
	u[8] = 0x80 | (u[8] & 0x3f)

	return u
}

// String returns the UUID in canonical form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4],
		u[4:6],
		u[6:8],
		u[8:10],
		u[10:16],
	)
}
