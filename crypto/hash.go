package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashSize is the byte length of subnet digests.
const HashSize = 32

// Hash is a SHA3-256 digest used to commit to simulation payloads and
// challenge parameters.
type Hash [HashSize]byte

// NewHashFromString parses a hex-encoded digest.
func NewHashFromString(data string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(data)
	if err != nil {
		return h, err
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("invalid hash length %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// String returns the hex encoding of the digest.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the digest is all zeroes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalJSON encodes the digest as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string digest.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewHashFromString(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashData computes the SHA3-256 digest of the concatenated parts. Each
// part is length-prefixed so that boundaries between parts cannot be
// shifted without changing the digest.
func HashData(parts ...[]byte) Hash {
	d := sha3.New256()
	var lenBuf [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		d.Write(lenBuf[:])
		d.Write(part)
	}
	var h Hash
	copy(h[:], d.Sum(nil))
	return h
}
