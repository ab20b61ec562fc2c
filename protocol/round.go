package protocol

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// RoundPhase is one of the four phases a round passes through.
type RoundPhase int

const (
	// ChallengePhase is when validators generate and dispatch challenges.
	ChallengePhase RoundPhase = iota
	// ComputePhase is when miners run their simulations.
	ComputePhase
	// ScorePhase is when validators verify results and update scores.
	ScorePhase
	// WeightsPhase is when validators submit weights to the registry.
	WeightsPhase
)

func (p RoundPhase) String() string {
	switch p {
	case ChallengePhase:
		return "challenge"
	case ComputePhase:
		return "compute"
	case ScorePhase:
		return "score"
	case WeightsPhase:
		return "weights"
	}
	return "unknown"
}

// Round identifies a protocol round and its current phase.
type Round struct {
	Number int
	Phase  RoundPhase
}

func (r Round) IsAfter(r2 Round) bool {
	return r.Number > r2.Number || (r.Number == r2.Number && r.Phase > r2.Phase)
}

func (r Round) Advance() Round {
	if r.Phase == WeightsPhase {
		return Round{r.Number + 1, ChallengePhase}
	}
	return Round{r.Number, r.Phase + 1}
}

// RoundCoordinator manages protocol round transitions.
type RoundCoordinator interface {
	// CurrentRound returns the current protocol round.
	CurrentRound() Round

	// SubscribeToRounds receives round transition notifications.
	SubscribeToRounds(ctx context.Context) <-chan Round

	// Start begins round progression.
	Start(ctx context.Context)

	// AdvanceToRound manually advances to a specific round (for testing).
	AdvanceToRound(round Round)
}

type subscriber struct {
	ctx context.Context
	ch  chan Round
}

// LocalRoundCoordinator derives rounds from wall-clock time, so
// independently started coordinators with the same round duration agree on
// the current round.
type LocalRoundCoordinator struct {
	mu            sync.RWMutex
	currentRound  Round
	roundDuration time.Duration
	subscribers   []subscriber
	started       *atomic.Bool
}

// NewLocalRoundCoordinator creates a time-based round coordinator.
func NewLocalRoundCoordinator(roundDuration time.Duration) *LocalRoundCoordinator {
	return &LocalRoundCoordinator{
		currentRound:  Round{0, ChallengePhase},
		roundDuration: roundDuration,
		subscribers:   make([]subscriber, 0),
		started:       &atomic.Bool{},
	}
}

// CurrentRound returns the current protocol round.
func (c *LocalRoundCoordinator) CurrentRound() Round {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentRound
}

// SubscribeToRounds receives round transition notifications. The current
// round is delivered immediately.
func (c *LocalRoundCoordinator) SubscribeToRounds(ctx context.Context) <-chan Round {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Round, 10)
	c.subscribers = append(c.subscribers, subscriber{ctx, ch})

	go func() {
		ch <- c.currentRound
	}()

	return ch
}

// RoundForTime maps an instant to the round in progress at that time.
func RoundForTime(instant time.Time, roundDuration time.Duration) Round {
	nTicks := instant.UnixMilli() / (roundDuration.Milliseconds() / 4)
	return Round{int(nTicks / 4), RoundPhase(nTicks % 4)}
}

// TimeForRound returns the instant at which the given round begins.
func TimeForRound(round Round, roundDuration time.Duration) time.Time {
	startTime := time.Unix(0, 0)
	return startTime.Add(time.Duration(round.Number) * roundDuration).Add(time.Duration(round.Phase) * roundDuration / 4)
}

// Start begins round progression.
func (c *LocalRoundCoordinator) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}

	c.currentRound = RoundForTime(time.Now(), c.roundDuration)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(TimeForRound(c.currentRound.Advance(), c.roundDuration))):
				c.advanceRound()
			}
		}
	}()
}

// AdvanceToRound manually advances to a specific round.
// Only used in tests.
func (c *LocalRoundCoordinator) AdvanceToRound(round Round) {
	for round.IsAfter(c.CurrentRound()) {
		c.advanceRound()
	}
}

// advanceRound moves to the next round and notifies subscribers.
func (c *LocalRoundCoordinator) advanceRound() {
	c.mu.Lock()
	c.currentRound = c.currentRound.Advance()
	newRound := c.currentRound

	toRemove := []int{}
	for i, sub := range c.subscribers {
		select {
		case <-sub.ctx.Done():
			close(sub.ch)
			toRemove = append(toRemove, i)
		case sub.ch <- newRound:
		default:
			// Skip if channel is full
		}
	}

	slices.Reverse(toRemove)
	for _, i := range toRemove {
		c.subscribers = slices.Delete(c.subscribers, i, i+1)
	}

	c.mu.Unlock()
}
