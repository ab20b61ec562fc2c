package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vn-automata/automata/crypto"
)

func TestStaticMeasurementSource(t *testing.T) {
	measurements := MeasurementAllowlist{
		{
			MeasurementID: "build-1",
			Measurements: map[int]MeasurementValue{
				0: {Expected: "0102"},
				1: {Expected: "0304"},
			},
		},
		{
			MeasurementID: "build-2",
			Measurements: map[int]MeasurementValue{
				0: {Expected: "0506"},
				1: {Expected: "0708"},
			},
		},
	}

	source := NewStaticMeasurementSource(measurements)

	retrieved, err := source.GetAllowedMeasurements()
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	require.Equal(t, "build-1", retrieved[0].MeasurementID)
	require.Equal(t, "0102", retrieved[0].Measurements[0].Expected)
}

func TestDemoMeasurementSource(t *testing.T) {
	source := DemoMeasurementSource()

	measurements, err := source.GetAllowedMeasurements()
	require.NoError(t, err)
	require.Len(t, measurements, 1)

	// Demo source matches tdx.DummyProvider registers 0-4.
	m := measurements[0].Measurements
	require.Equal(t, "00", m[0].Expected)
	require.Equal(t, "01", m[1].Expected)
	require.Equal(t, "02", m[2].Expected)
	require.Equal(t, "03", m[3].Expected)
	require.Equal(t, "04", m[4].Expected)
}

func TestVerifyMeasurementsMatch(t *testing.T) {
	allowed := MeasurementAllowlist{
		{
			MeasurementID: "build-1",
			Measurements: map[int]MeasurementValue{
				0: {Expected: "01"},
				1: {Expected: "02"},
			},
		},
		{
			MeasurementID: "build-2",
			Measurements: map[int]MeasurementValue{
				0: {Expected: "03"},
				1: {Expected: "04"},
			},
		},
	}

	matched, err := VerifyMeasurementsMatch(allowed, Measurements{0: []byte{0x01}, 1: []byte{0x02}})
	require.NoError(t, err)
	require.Equal(t, "build-1", matched.MeasurementID)

	matched, err = VerifyMeasurementsMatch(allowed, Measurements{0: []byte{0x03}, 1: []byte{0x04}})
	require.NoError(t, err)
	require.Equal(t, "build-2", matched.MeasurementID)
}

func TestVerifyMeasurementsMatch_NoMatch(t *testing.T) {
	allowed := MeasurementAllowlist{
		{
			MeasurementID: "build-1",
			Measurements: map[int]MeasurementValue{
				0: {Expected: "01"},
				1: {Expected: "02"},
			},
		},
	}

	// No register matches.
	_, err := VerifyMeasurementsMatch(allowed, Measurements{0: []byte{0xFF}, 1: []byte{0xFF}})
	require.Error(t, err)

	// One register differs.
	_, err = VerifyMeasurementsMatch(allowed, Measurements{0: []byte{0x01}, 1: []byte{0xFF}})
	require.Error(t, err)

	// Expected register missing entirely.
	_, err = VerifyMeasurementsMatch(allowed, Measurements{0: []byte{0x01}})
	require.Error(t, err)

	// Empty allowlist admits nothing.
	_, err = VerifyMeasurementsMatch(MeasurementAllowlist{}, Measurements{0: []byte{0x01}})
	require.Error(t, err)
}

func TestMeasurementEntry_ToMeasurements(t *testing.T) {
	entry := MeasurementEntry{
		MeasurementID: "build",
		Measurements: map[int]MeasurementValue{
			0: {Expected: "0102"},
			1: {Expected: "0304"},
		},
	}

	m, err := entry.ToMeasurements()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, m[0])
	require.Equal(t, []byte{0x03, 0x04}, m[1])
}

func TestMeasurementEntry_ToMeasurements_InvalidHex(t *testing.T) {
	entry := MeasurementEntry{
		MeasurementID: "build",
		Measurements: map[int]MeasurementValue{
			0: {Expected: "invalid"},
		},
	}

	_, err := entry.ToMeasurements()
	require.Error(t, err)
}

func TestReportDataForNeuron(t *testing.T) {
	endpoint := "http://localhost:8080"
	hotkey := crypto.PublicKey("public-key-bytes")

	data := ReportDataForNeuron(endpoint, hotkey)
	require.Len(t, data, 32)

	// Deterministic for the same inputs.
	require.Equal(t, data, ReportDataForNeuron(endpoint, hotkey))

	// Sensitive to the endpoint binding.
	require.NotEqual(t, data, ReportDataForNeuron("http://localhost:8081", hotkey))
}
