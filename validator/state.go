package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ScoreEntry tracks a miner's smoothed score.
type ScoreEntry struct {
	Score        float64 `json:"score"`
	UpdatedRound int     `json:"updated_round"`
}

// State holds the validator's persistent per-miner scores. It survives
// restarts through SaveState/LoadState so a validator does not reset the
// subnet's score history every time it comes back up.
type State struct {
	mu     sync.RWMutex
	scores map[string]*ScoreEntry
}

// NewState creates empty validator state.
func NewState() *State {
	return &State{scores: make(map[string]*ScoreEntry)}
}

// UpdateScore folds a round score into the miner's exponential moving
// average: score = (1-alpha)*old + alpha*observed. A miner seen for the
// first time starts at the observed value.
func (s *State) UpdateScore(hotkey string, observed float64, roundNumber int, alpha float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.scores[hotkey]
	if !ok {
		entry = &ScoreEntry{Score: observed}
		s.scores[hotkey] = entry
	} else {
		entry.Score = (1-alpha)*entry.Score + alpha*observed
	}
	entry.UpdatedRound = roundNumber
	return entry.Score
}

// Score returns a miner's current smoothed score.
func (s *State) Score(hotkey string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.scores[hotkey]
	if !ok {
		return 0, false
	}
	return entry.Score, true
}

// Scores returns a copy of all smoothed scores.
func (s *State) Scores() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := make(map[string]float64, len(s.scores))
	for hotkey, entry := range s.scores {
		scores[hotkey] = entry.Score
	}
	return scores
}

// Forget drops a miner from the state, used when a hotkey is unregistered.
func (s *State) Forget(hotkey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scores, hotkey)
}

type stateFile struct {
	Scores map[string]*ScoreEntry `json:"scores"`
}

// SaveState writes the state to path atomically.
func (s *State) SaveState(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(&stateFile{Scores: s.scores}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("serializing state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadState reads previously saved state. A missing file is not an error;
// the validator starts fresh.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}

	state := NewState()
	if file.Scores != nil {
		state.scores = file.Scores
	}
	return state, nil
}
