package ca

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/vn-automata/automata/crypto"
)

// dtypeUint8 is the only cell dtype the subnet transports.
const dtypeUint8 = "uint8"

// payloadEnvelope is the wire form of a history: the raw cell buffer,
// base64-encoded, together with its shape and dtype.
type payloadEnvelope struct {
	Array string `json:"array"`
	Shape []int  `json:"shape"`
	Dtype string `json:"dtype"`
}

// EncodeHistory serializes a history into its JSON payload envelope.
func EncodeHistory(h *History) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	cells := h.Flatten()
	env := payloadEnvelope{
		Array: base64.StdEncoding.EncodeToString(cells),
		Shape: h.Shape(),
		Dtype: dtypeUint8,
	}
	return json.Marshal(&env)
}

// DecodeHistory parses a payload envelope back into a history, validating
// dtype and geometry before touching cell data.
func DecodeHistory(data []byte) (*History, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding payload envelope: %w", err)
	}
	if env.Dtype != dtypeUint8 {
		return nil, fmt.Errorf("unsupported dtype %q", env.Dtype)
	}

	var generations, height, width int
	switch len(env.Shape) {
	case 2:
		generations, height, width = env.Shape[0], 1, env.Shape[1]
	case 3:
		generations, height, width = env.Shape[0], env.Shape[1], env.Shape[2]
	default:
		return nil, fmt.Errorf("invalid shape %v", env.Shape)
	}
	if generations <= 0 || height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid shape %v", env.Shape)
	}

	cells, err := base64.StdEncoding.DecodeString(env.Array)
	if err != nil {
		return nil, fmt.Errorf("decoding cell buffer: %w", err)
	}
	// Geometry checks use division so hostile shapes cannot overflow the
	// product and slip past into allocation.
	if width > len(cells) || height > len(cells)/width {
		return nil, fmt.Errorf("cell buffer length %d does not match shape %v", len(cells), env.Shape)
	}
	stride := height * width
	if len(cells)%stride != 0 || len(cells)/stride != generations {
		return nil, fmt.Errorf("cell buffer length %d does not match shape %v", len(cells), env.Shape)
	}

	h := &History{Dim: len(env.Shape) - 1, Generations: make([]Grid, 0, generations)}
	for g := 0; g < generations; g++ {
		gen := Grid{
			Height: height,
			Width:  width,
			Cells:  append([]Cell(nil), cells[g*stride:(g+1)*stride]...),
		}
		h.Generations = append(h.Generations, gen)
	}
	return h, nil
}

// DigestHistory commits to a history's dtype, shape and raw cells. Both
// miner and validator compute this over their own evolution; equality is
// the correctness criterion.
func DigestHistory(h *History) crypto.Hash {
	shape := h.Shape()
	shapeBytes := make([]byte, 8*len(shape))
	for i, dim := range shape {
		binary.BigEndian.PutUint64(shapeBytes[i*8:], uint64(dim))
	}
	return crypto.HashData([]byte(dtypeUint8), shapeBytes, h.Flatten())
}
