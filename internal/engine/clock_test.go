package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensender/internal/ledger"
)

type seqSource struct {
	last int64
	err  error
}

func (s seqSource) LastSeq(ctx context.Context) (int64, error) { return s.last, s.err }

func TestClock_FirstSeqIsOne(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Last())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(1), c.Last())
}

func TestResumeClock_ContinuesAfterLastSeq(t *testing.T) {
	c, err := ResumeClock(context.Background(), seqSource{last: 41})
	require.NoError(t, err)
	assert.Equal(t, int64(41), c.Last())
	assert.Equal(t, int64(42), c.Next())

	_, err = ResumeClock(context.Background(), seqSource{err: errors.New("database is locked")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resume clock")
}

func TestResumeClock_FromStore(t *testing.T) {
	e, s := newTestEngine(t)
	instantiate(t, e, "1")
	_, err := execute(e, alice, `{"increment_limit":{}}`)
	require.NoError(t, err)

	clock, err := ResumeClock(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(4), clock.Last(), "two requests, two records each")

	// A restarted engine keeps numbering where the log left off.
	restarted := New(s, e.addrs, e.Config(), WithClock(clock))
	res, err := execute(restarted, alice, `{"increment_limit":{}}`)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Seq)
}

func TestClock_SeqsAcrossFailedRequest(t *testing.T) {
	e, _ := newTestEngine(t)
	instantiate(t, e, "5")

	_, err := execute(e, alice, `{"update_limit":{"limit":"9"}}`)
	require.True(t, ledger.IsInsufficientFunds(err))
	res, err := execute(e, alice, `{"increment_limit":{}}`)
	require.NoError(t, err)

	history, err := e.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	var prev int64
	for _, entry := range history {
		assert.Greater(t, entry.Invocation.Seq, prev)
		assert.Greater(t, entry.Completion.Seq, entry.Invocation.Seq)
		prev = entry.Completion.Seq
	}
	assert.Equal(t, "INSUFFICIENT_FUNDS", history[1].Completion.Outcome)
	assert.Equal(t, int64(3), history[1].Invocation.Seq)
	assert.Equal(t, int64(4), history[1].Completion.Seq)
	assert.Equal(t, int64(5), res.Seq)
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClockAt(100)
	const workers, perWorker = 8, 250

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(100+workers*perWorker), c.Last())
}
