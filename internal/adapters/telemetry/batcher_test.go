package telemetry_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/sling/internal/adapters/telemetry"
)

type collector struct {
	mu      sync.Mutex
	flushes []string
}

func (c *collector) flush(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes = append(c.flushes, string(data))
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.flushes...)
}

func TestBatchProcessor_FlushOnSize(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(5, time.Hour, c.flush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("123"))
	require.NoError(t, err)
	assert.Empty(t, c.snapshot())

	// Reaching the limit flushes synchronously, partial line included.
	_, err = bp.Write([]byte("456"))
	require.NoError(t, err)
	assert.Equal(t, []string{"123456"}, c.snapshot())
}

func TestBatchProcessor_TickFlushesCompleteLines(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := &collector{}
		bp := telemetry.NewBatchProcessor(1024, 50*time.Millisecond, c.flush)
		defer func() { _ = bp.Close() }()

		_, err := bp.Write([]byte("src/a.ts(1,1): error\nsrc/b.t"))
		require.NoError(t, err)

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, []string{"src/a.ts(1,1): error\n"}, c.snapshot())

		_, err = bp.Write([]byte("s(2,2): error\n"))
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, []string{"src/a.ts(1,1): error\n", "src/b.ts(2,2): error\n"}, c.snapshot())
	})
}

func TestBatchProcessor_TickKeepsPartialLine(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c := &collector{}
		bp := telemetry.NewBatchProcessor(1024, 50*time.Millisecond, c.flush)

		_, err := bp.Write([]byte("no newline yet"))
		require.NoError(t, err)

		time.Sleep(200 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, c.snapshot())

		require.NoError(t, bp.Close())
		assert.Equal(t, []string{"no newline yet"}, c.snapshot())
	})
}

func TestBatchProcessor_ManualFlush(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(100, time.Hour, c.flush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("hello\nwor"))
	require.NoError(t, err)
	assert.Empty(t, c.snapshot())

	bp.Flush()
	assert.Equal(t, []string{"hello\n"}, c.snapshot())
}

func TestBatchProcessor_CloseFlushes(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(100, time.Hour, c.flush)

	_, err := bp.Write([]byte("pending"))
	require.NoError(t, err)
	assert.Empty(t, c.snapshot())

	require.NoError(t, bp.Close())
	assert.Equal(t, []string{"pending"}, c.snapshot())

	_, err = bp.Write([]byte("fail"))
	require.ErrorIs(t, err, telemetry.ErrBatcherClosed)

	// Close is idempotent.
	require.NoError(t, bp.Close())
}

func TestBatchProcessor_ThreadSafety(t *testing.T) {
	c := &collector{}
	bp := telemetry.NewBatchProcessor(20, 10*time.Millisecond, c.flush)

	var wg sync.WaitGroup
	workers := 10
	iterations := 100

	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for j := range iterations {
				_, _ = bp.Write([]byte("a\n"))
				if j%10 == 0 {
					bp.Flush()
				}
			}
		}()
	}

	wg.Wait()
	require.NoError(t, bp.Close())

	total := 0
	for _, f := range c.snapshot() {
		total += len(f)
	}
	assert.Equal(t, workers*iterations*2, total)
}
