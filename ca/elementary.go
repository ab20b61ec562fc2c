package ca

import (
	"fmt"
	"strconv"
	"strings"
)

// elementaryRule is a one-dimensional automaton in Wolfram's NKS numbering.
// The neighbourhood window, read left to right, forms a binary index into
// the rule number's bits. With radius 1 this covers rules 0..255.
type elementaryRule struct {
	name   string
	number uint64
}

func (r elementaryRule) Name() string   { return r.name }
func (r elementaryRule) Dimension() int { return 1 }

func (r elementaryRule) NextCell(window []Cell) Cell {
	var idx uint
	for _, c := range window {
		idx <<= 1
		if c != 0 {
			idx |= 1
		}
	}
	return Cell((r.number >> idx) & 1)
}

// NewElementaryRule constructs the elementary automaton with the given rule
// number (0..255 for the standard radius-1 window).
func NewElementaryRule(number int) (Rule1D, error) {
	if number < 0 || number > 255 {
		return nil, fmt.Errorf("elementary rule number %d out of range 0..255", number)
	}
	return elementaryRule{fmt.Sprintf("rule%d", number), uint64(number)}, nil
}

func parseElementary(key string) (Rule, bool) {
	num, ok := strings.CutPrefix(key, "rule")
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return nil, false
	}
	r, err := NewElementaryRule(n)
	if err != nil {
		return nil, false
	}
	return r, true
}
