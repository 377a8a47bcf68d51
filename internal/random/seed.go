// Package random draws high-entropy base seeds for sessions. Everything
// downstream (initiative rolls, scheduler tie-breaks, dice results) is a
// deterministic function of the base seed and a record sequence number, so
// this is the only place nondeterminism enters a session.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed draws a session base seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read seed entropy: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
