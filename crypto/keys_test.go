package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair_SignVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	data := []byte("round 7 challenge")
	sig, err := Sign(priv, data)
	require.NoError(t, err)

	assert.True(t, sig.Verify(pub, data))
	assert.False(t, sig.Verify(pub, []byte("round 8 challenge")))

	otherPub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, sig.Verify(otherPub, data))
}

func TestPrivateKey_DerivesPublicKey(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	derived, err := priv.PublicKey()
	require.NoError(t, err)
	assert.True(t, pub.Equal(derived))

	_, err = PrivateKey([]byte("short")).PublicKey()
	assert.Error(t, err)
}

func TestPublicKey_HexRoundTrip(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := NewPublicKeyFromString(pub.String())
	require.NoError(t, err)
	assert.True(t, pub.Equal(parsed))

	_, err = NewPublicKeyFromString("not-hex")
	assert.Error(t, err)
}

func TestSign_InvalidKey(t *testing.T) {
	_, err := Sign(PrivateKey([]byte("too short")), []byte("data"))
	assert.Error(t, err)
}

func TestSignature_VerifyBadKeyLength(t *testing.T) {
	_, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	sig, err := Sign(priv, []byte("data"))
	require.NoError(t, err)

	assert.False(t, sig.Verify(PublicKey([]byte("short")), []byte("data")))
}
