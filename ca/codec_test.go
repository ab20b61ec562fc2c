package ca

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip1D(t *testing.T) {
	rule, err := Lookup("rule30")
	require.NoError(t, err)

	history, err := Evolve1D(InitSimple1D(32), 10, rule.(Rule1D), 1)
	require.NoError(t, err)

	payload, err := EncodeHistory(history)
	require.NoError(t, err)

	decoded, err := DecodeHistory(payload)
	require.NoError(t, err)

	assert.Equal(t, 1, decoded.Dim)
	require.Len(t, decoded.Generations, 11)
	for i := range history.Generations {
		assert.True(t, decoded.Generations[i].Equal(history.Generations[i]), "generation %d", i)
	}
}

func TestCodec_RoundTrip2D(t *testing.T) {
	conway := mustRule2D(t, "conway")
	history, err := Evolve2D(InitRandom2D(10, 12, 0.4, 42), 5, conway, 1, Moore)
	require.NoError(t, err)

	payload, err := EncodeHistory(history)
	require.NoError(t, err)

	decoded, err := DecodeHistory(payload)
	require.NoError(t, err)

	assert.Equal(t, 2, decoded.Dim)
	assert.Equal(t, []int{6, 10, 12}, decoded.Shape())
	assert.Equal(t, DigestHistory(history), DigestHistory(decoded))
}

func TestCodec_EnvelopeFields(t *testing.T) {
	history, err := Evolve2D(InitSimple2D(4, 4), 1, mustRule2D(t, "conway"), 1, Moore)
	require.NoError(t, err)

	payload, err := EncodeHistory(history)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(payload, &env))
	assert.Equal(t, "uint8", env["dtype"])
	assert.Contains(t, env, "array")
	assert.Contains(t, env, "shape")
}

func TestDecodeHistory_Rejections(t *testing.T) {
	valid := payloadEnvelope{
		Array: base64.StdEncoding.EncodeToString(make([]byte, 8)),
		Shape: []int{2, 4},
		Dtype: "uint8",
	}

	cases := []struct {
		name   string
		mutate func(*payloadEnvelope)
	}{
		{"wrong dtype", func(e *payloadEnvelope) { e.Dtype = "float64" }},
		{"shape mismatch", func(e *payloadEnvelope) { e.Shape = []int{3, 4} }},
		{"bad shape rank", func(e *payloadEnvelope) { e.Shape = []int{8} }},
		{"negative dimension", func(e *payloadEnvelope) { e.Shape = []int{2, -4} }},
		{"bad base64", func(e *payloadEnvelope) { e.Array = "%%%" }},
		{"empty buffer", func(e *payloadEnvelope) { e.Array = "" }},
		{"overflowing shape", func(e *payloadEnvelope) {
			// The dimension product wraps to zero in int arithmetic; the
			// decoder must reject this without allocating.
			e.Shape = []int{1 << 32, 1 << 32, 1}
			e.Array = ""
		}},
		{"oversized width", func(e *payloadEnvelope) { e.Shape = []int{1, 1, 1 << 40} }},
		{"buffer not a whole number of generations", func(e *payloadEnvelope) { e.Shape = []int{3, 3} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := valid
			tc.mutate(&env)
			data, err := json.Marshal(&env)
			require.NoError(t, err)
			_, err = DecodeHistory(data)
			assert.Error(t, err)
		})
	}

	_, err := DecodeHistory([]byte("not json"))
	assert.Error(t, err)
}

func TestDigestHistory_Distinguishes(t *testing.T) {
	conway := mustRule2D(t, "conway")

	a, err := Evolve2D(InitRandom2D(8, 8, 0.5, 1), 4, conway, 1, Moore)
	require.NoError(t, err)
	b, err := Evolve2D(InitRandom2D(8, 8, 0.5, 2), 4, conway, 1, Moore)
	require.NoError(t, err)

	assert.NotEqual(t, DigestHistory(a), DigestHistory(b))

	// Same evolution recomputed yields the same digest.
	a2, err := Evolve2D(InitRandom2D(8, 8, 0.5, 1), 4, conway, 1, Moore)
	require.NoError(t, err)
	assert.Equal(t, DigestHistory(a), DigestHistory(a2))
}

func TestDigestHistory_ShapeMatters(t *testing.T) {
	// Identical flat cell contents with different geometry must not
	// collide.
	flat := &History{Dim: 1, Generations: []Grid{NewGrid(1, 16), NewGrid(1, 16)}}
	square := &History{Dim: 2, Generations: []Grid{NewGrid(4, 8)}}
	assert.NotEqual(t, DigestHistory(flat), DigestHistory(square))
}
