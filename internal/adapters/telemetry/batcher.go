// Package telemetry adapts OpenTelemetry spans to the build's tracer port and
// forwards span lifecycles and output to a renderer.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultSizeLimit is the buffer size (4KB) that forces a flush.
	DefaultSizeLimit = 4096
	// DefaultTimeLimit is the flush interval (50ms).
	DefaultTimeLimit = 50 * time.Millisecond
)

// ErrBatcherClosed is returned when writing to a closed BatchProcessor.
var ErrBatcherClosed = errors.New("batch processor is closed")

// BatchProcessor buffers span output and hands it to a callback in whole
// lines. Periodic flushes keep a trailing partial line buffered until it is
// completed, the size limit is reached, or the processor is closed.
type BatchProcessor struct {
	sizeLimit int
	timeLimit time.Duration
	onFlush   func([]byte)

	mu     sync.Mutex
	buffer bytes.Buffer
	ticker *time.Ticker
	stopCh chan struct{}
	closed bool
}

// NewBatchProcessor returns a running BatchProcessor. Zero limits select the
// defaults. Call Close to stop the background flusher.
func NewBatchProcessor(sizeLimit int, timeLimit time.Duration, onFlush func([]byte)) *BatchProcessor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	bp := &BatchProcessor{
		sizeLimit: sizeLimit,
		timeLimit: timeLimit,
		onFlush:   onFlush,
		ticker:    time.NewTicker(timeLimit),
		stopCh:    make(chan struct{}),
	}
	go bp.run()
	return bp
}

// Write buffers p. Reaching the size limit flushes everything buffered.
func (bp *BatchProcessor) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return 0, ErrBatcherClosed
	}

	n, _ := bp.buffer.Write(p)
	if bp.buffer.Len() >= bp.sizeLimit {
		bp.flushLocked(false)
		bp.ticker.Reset(bp.timeLimit)
	}
	return n, nil
}

// Flush hands every complete buffered line to the callback.
func (bp *BatchProcessor) Flush() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.closed {
		return
	}
	bp.flushLocked(true)
}

// Close stops the background flusher and flushes everything, including a partial line.
func (bp *BatchProcessor) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.closed {
		return nil
	}
	bp.closed = true
	close(bp.stopCh)
	bp.flushLocked(false)
	return nil
}

func (bp *BatchProcessor) run() {
	for {
		select {
		case <-bp.ticker.C:
			bp.Flush()
		case <-bp.stopCh:
			bp.ticker.Stop()
			return
		}
	}
}

// flushLocked must be called with mu held.
func (bp *BatchProcessor) flushLocked(linesOnly bool) {
	n := bp.buffer.Len()
	if linesOnly {
		n = bytes.LastIndexByte(bp.buffer.Bytes(), '\n') + 1
	}
	if n == 0 {
		return
	}

	data := make([]byte, n)
	copy(data, bp.buffer.Next(n))
	if bp.onFlush != nil {
		bp.onFlush(data)
	}
}
