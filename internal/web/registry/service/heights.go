package service

import (
	"context"
	"sync"

	gutils "github.com/Laisky/go-utils/v6"
)

// HeightSource supplies the ordering marker recorded on each submission.
type HeightSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}

// ClockHeight derives the height from the shared clock, in unix seconds.
type ClockHeight struct{}

// CurrentHeight returns the current unix time as the height.
func (ClockHeight) CurrentHeight(context.Context) (uint64, error) {
	return uint64(gutils.Clock.GetUTCNow().Unix()), nil
}

// StepHeight is a monotonic counter height, mainly for tests and dry runs.
type StepHeight struct {
	mu   sync.Mutex
	next uint64
}

// NewStepHeight starts the counter at start.
func NewStepHeight(start uint64) *StepHeight {
	return &StepHeight{next: start}
}

// CurrentHeight returns the current height and advances the counter.
func (h *StepHeight) CurrentHeight(context.Context) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	height := h.next
	h.next++
	return height, nil
}
