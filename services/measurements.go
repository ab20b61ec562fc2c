package services

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MeasurementAllowlist enumerates the attestation measurements of accepted
// neuron builds. A neuron's attestation is admitted when its measurements
// match any entry in the list.
//
// JSON format:
//
//	[
//	  {
//	    "measurement_id": "automata-v0.1.0-tdx-abc123...",
//	    "measurements": {
//	      0: {"expected": "hex-encoded-mrtd..."},
//	      1: {"expected": "hex-encoded-rtmr0..."}
//	    }
//	  }
//	]
//
// Keys in "measurements" are register indices.
type MeasurementAllowlist []MeasurementEntry

// MeasurementEntry represents a single acceptable build configuration.
type MeasurementEntry struct {
	MeasurementID string                   `json:"measurement_id"`
	Measurements  map[int]MeasurementValue `json:"measurements"`
}

// MeasurementValue holds an expected measurement value.
type MeasurementValue struct {
	Expected string `json:"expected"`
}

// ToMeasurements converts a MeasurementEntry to the internal format.
func (e *MeasurementEntry) ToMeasurements() (Measurements, error) {
	result := make(Measurements)
	for idx, mv := range e.Measurements {
		val, err := hex.DecodeString(mv.Expected)
		if err != nil {
			return nil, fmt.Errorf("invalid hex for index %d: %w", idx, err)
		}
		result[idx] = val
	}
	return result, nil
}

// MeasurementSource provides expected measurements for attestation
// verification.
type MeasurementSource interface {
	// GetAllowedMeasurements returns all acceptable measurement sets.
	GetAllowedMeasurements() (MeasurementAllowlist, error)
}

// StaticMeasurementSource serves a fixed allowlist. Used for tests and for
// local deployments where the accepted builds are known up front.
type StaticMeasurementSource struct {
	Measurements MeasurementAllowlist
}

// NewStaticMeasurementSource creates a source with predefined measurements.
func NewStaticMeasurementSource(measurements MeasurementAllowlist) *StaticMeasurementSource {
	return &StaticMeasurementSource{Measurements: measurements}
}

// GetAllowedMeasurements returns the static measurement sets.
func (s *StaticMeasurementSource) GetAllowedMeasurements() (MeasurementAllowlist, error) {
	return s.Measurements, nil
}

// DemoMeasurementSource returns a MeasurementSource matching the values
// produced by tdx.DummyProvider. Only use in demo and testing environments.
func DemoMeasurementSource() *StaticMeasurementSource {
	return NewStaticMeasurementSource(MeasurementAllowlist{
		{
			MeasurementID: "automata-demo-dummy-attestation",
			Measurements: map[int]MeasurementValue{
				0: {Expected: "00"},
				1: {Expected: "01"},
				2: {Expected: "02"},
				3: {Expected: "03"},
				4: {Expected: "04"},
			},
		},
	})
}

// RemoteMeasurementSource fetches the allowlist from a published URL and
// caches it for an hour.
type RemoteMeasurementSource struct {
	URL        string
	HTTPClient *http.Client

	cacheTimeout time.Time
	cached       MeasurementAllowlist
}

// NewRemoteMeasurementSource creates a source that fetches from a URL.
func NewRemoteMeasurementSource(url string) *RemoteMeasurementSource {
	return &RemoteMeasurementSource{
		URL:        url,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetAllowedMeasurements fetches and returns all acceptable measurement sets.
func (r *RemoteMeasurementSource) GetAllowedMeasurements() (MeasurementAllowlist, error) {
	if r.cached != nil && time.Now().Before(r.cacheTimeout) {
		return r.cached, nil
	}

	allowed, err := r.fetchMeasurements()
	if err != nil {
		return nil, err
	}

	r.cached = allowed
	r.cacheTimeout = time.Now().Add(time.Hour)
	return allowed, nil
}

func (r *RemoteMeasurementSource) fetchMeasurements() (MeasurementAllowlist, error) {
	resp, err := r.HTTPClient.Get(r.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching measurements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("measurements returned %d: %s", resp.StatusCode, body)
	}

	var allowed MeasurementAllowlist
	if err := json.NewDecoder(resp.Body).Decode(&allowed); err != nil {
		return nil, fmt.Errorf("decoding measurements: %w", err)
	}

	return allowed, nil
}

// VerifyMeasurementsMatch returns the first allowlist entry whose expected
// values all match the actual measurements.
func VerifyMeasurementsMatch(allowed MeasurementAllowlist, actual Measurements) (MeasurementEntry, error) {
	for _, entry := range allowed {
		matches := true
		for idx, expectedVal := range entry.Measurements {
			actualVal, ok := actual[idx]
			if !ok {
				matches = false
				break
			}
			if expectedVal.Expected != hex.EncodeToString(actualVal) {
				matches = false
				break
			}
		}
		if matches {
			return entry, nil
		}
	}

	return MeasurementEntry{}, errors.New("measurements do not match any allowed set")
}
