// Package pacing holds the randomness that makes the bot look human: reply
// delays and uniform choice of outreach targets. The random source is always
// injected so callers are deterministic under test.
package pacing

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// LockedSource is a Source safe for concurrent use by the triage handlers
// and the outreach jobs.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSource(seed uint64) *LockedSource {
	return &LockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSource seeds from the runtime's entropy.
func NewRandomSource() *LockedSource {
	return NewSource(rand.Uint64())
}

func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// HumanDelay returns 1000*floor(r*(maxSec-minSec+1)) + minSec milliseconds.
// minSec lands in the millisecond position, so the result spans
// [minSec ms, 1000*(maxSec-minSec) + minSec ms].
func HumanDelay(src Source, minSec, maxSec int) time.Duration {
	steps := DelayStep(src, minSec, maxSec)
	return time.Duration(1000*steps+minSec) * time.Millisecond
}

// DelayStep is the integer floor(r*(maxSec-minSec+1)) behind HumanDelay.
func DelayStep(src Source, minSec, maxSec int) int {
	return int(math.Floor(src.Float64() * float64(maxSec-minSec+1)))
}

// Pick returns a uniform index in [0, n), or -1 when n is zero.
func Pick(src Source, n int) int {
	if n <= 0 {
		return -1
	}
	i := int(math.Floor(src.Float64() * float64(n)))
	if i >= n {
		i = n - 1
	}
	return i
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
