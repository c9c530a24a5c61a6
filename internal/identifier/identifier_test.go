package identifier

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agritrace/agritrace/internal/adapter"
	"github.com/agritrace/agritrace/internal/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func TestGeneratorPrefixes(t *testing.T) {
	g := NewGenerator(adapter.NewClock())

	traceID := g.NewTraceID()
	batchID := g.NewBatchID()

	assert.True(t, strings.HasPrefix(traceID, TracePrefix))
	assert.True(t, strings.HasPrefix(batchID, BatchPrefix))

	// Prefix plus a 26-character Crockford base32 ULID
	require.Len(t, traceID, len(TracePrefix)+26)
	require.Len(t, batchID, len(BatchPrefix)+26)

	_, err := ulid.Parse(traceID[len(TracePrefix):])
	assert.NoError(t, err)
	_, err = ulid.Parse(batchID[len(BatchPrefix):])
	assert.NoError(t, err)
}

func TestGeneratorEmbedsTimestamp(t *testing.T) {
	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(&fixedClock{now: now})

	id, err := ulid.Parse(g.NewTraceID()[len(TracePrefix):])
	require.NoError(t, err)
	assert.Equal(t, uint64(now.UnixMilli()), id.Time())
}

func TestGeneratorConcurrentUniqueness(t *testing.T) {
	g := NewGenerator(adapter.NewClock())

	const perWorker = 200
	const workers = 8

	var mu sync.Mutex
	seen := make(map[string]bool, perWorker*workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id := g.NewTraceID()
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, perWorker*workers)
}

func TestGeneratorEntropyFailureFallback(t *testing.T) {
	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	g := &ulidGenerator{clock: &fixedClock{now: now}, entropy: &brokenReader{}}

	assert.Equal(t, fmt.Sprintf("%s%d", TracePrefix, now.UnixMilli()), g.NewTraceID())
	assert.Equal(t, fmt.Sprintf("%s%d", BatchPrefix, now.UnixMilli()), g.NewBatchID())
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time                  { return c.now }
func (c *fixedClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }
func (c *fixedClock) Sleep(d time.Duration)           {}

// brokenReader simulates an exhausted entropy source
type brokenReader struct{}

func (*brokenReader) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("entropy source unavailable")
}
