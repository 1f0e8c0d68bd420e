package engine

import (
	"context"
	"fmt"
	"sync/atomic"
)

// SeqSource reports the highest seq already written to the audit log.
// *store.Store implements it.
type SeqSource interface {
	LastSeq(ctx context.Context) (int64, error)
}

// Clock stamps audit records with seqs.
//
// A request draws one seq for its invocation and a later one for its
// completion, whether it commits or is audited as a failure. Seqs never
// repeat across restarts as long as the clock is resumed from the log.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock for an empty audit log. The first seq is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose first seq is last+1.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.last.Store(last)
	return c
}

// ResumeClock returns a clock continuing after the log's last seq.
func ResumeClock(ctx context.Context, src SeqSource) (*Clock, error) {
	last, err := src.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	return NewClockAt(last), nil
}

// Next stamps a new record.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Last returns the most recent seq handed out.
func (c *Clock) Last() int64 {
	return c.last.Load()
}
