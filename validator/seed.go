package validator

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

func randomSeed() (int64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("seeding rng: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:]) >> 1), nil
}
