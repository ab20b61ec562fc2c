package crypto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashData_LengthPrefixing(t *testing.T) {
	// Moving a byte across a part boundary must change the digest.
	a := HashData([]byte("ab"), []byte("c"))
	b := HashData([]byte("a"), []byte("bc"))
	assert.NotEqual(t, a, b)

	assert.Equal(t, HashData([]byte("abc")), HashData([]byte("abc")))
}

func TestHash_HexRoundTrip(t *testing.T) {
	h := HashData([]byte("payload"))

	parsed, err := NewHashFromString(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = NewHashFromString("zz")
	assert.Error(t, err)
	_, err = NewHashFromString("abcd")
	assert.Error(t, err)
}

func TestHash_JSONRoundTrip(t *testing.T) {
	h := HashData([]byte("payload"))

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+h.String()+`"`, string(data))

	var decoded Hash
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded)

	assert.Error(t, json.Unmarshal([]byte(`"abcd"`), &decoded))
}

func TestHash_IsZero(t *testing.T) {
	var zero Hash
	assert.True(t, zero.IsZero())
	assert.False(t, HashData(nil).IsZero())
}
