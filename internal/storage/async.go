package storage

import (
	"context"
	"sync"
	"time"

	"github.com/mselser95/sports-arb/internal/arbitrage"
	"go.uber.org/zap"
)

// AsyncWriter hands scan results to a Storage on a background goroutine so a
// slow database never delays a scan. Batches submitted while the queue is full
// are dropped and counted.
type AsyncWriter struct {
	storage      Storage
	jobs         chan writeJob
	writeTimeout time.Duration
	logger       *zap.Logger

	// abort cancels the write in flight and skips the rest of the queue.
	ctx   context.Context
	abort context.CancelFunc

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

type writeJob struct {
	quotes []QuoteRecord
	opps   []*arbitrage.Opportunity
}

// AsyncWriterConfig holds async writer configuration.
type AsyncWriterConfig struct {
	Storage      Storage
	BufferSize   int
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// NewAsyncWriter creates a writer and starts its drain loop.
func NewAsyncWriter(cfg *AsyncWriterConfig) *AsyncWriter {
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, abort := context.WithCancel(context.Background())

	w := &AsyncWriter{
		ctx:          ctx,
		abort:        abort,
		storage:      cfg.Storage,
		jobs:         make(chan writeJob, size),
		writeTimeout: timeout,
		logger:       cfg.Logger,
		done:         make(chan struct{}),
	}

	go w.drain()

	return w
}

// Submit queues one scan's results. It never blocks and reports whether the
// batch was accepted.
func (w *AsyncWriter) Submit(quotes []QuoteRecord, opps []*arbitrage.Opportunity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		WriteBatchesDroppedTotal.WithLabelValues("closed").Inc()
		return false
	}

	select {
	case w.jobs <- writeJob{quotes: quotes, opps: opps}:
		WriteQueueDepth.Set(float64(len(w.jobs)))
		return true
	default:
		WriteBatchesDroppedTotal.WithLabelValues("queue-full").Inc()
		w.logger.Warn("storage-queue-full-dropping-batch",
			zap.Int("quote-count", len(quotes)),
			zap.Int("opportunity-count", len(opps)))
		return false
	}
}

func (w *AsyncWriter) drain() {
	defer close(w.done)

	for job := range w.jobs {
		WriteQueueDepth.Set(float64(len(w.jobs)))
		if w.ctx.Err() != nil {
			WriteBatchesDroppedTotal.WithLabelValues("aborted").Inc()
			continue
		}
		w.write(job)
	}
}

func (w *AsyncWriter) write(job writeJob) {
	ctx, cancel := context.WithTimeout(w.ctx, w.writeTimeout)
	defer cancel()

	if len(job.quotes) > 0 {
		start := time.Now()
		err := w.storage.StoreQuotes(ctx, job.quotes)
		WriteDurationSeconds.WithLabelValues("quotes").Observe(time.Since(start).Seconds())
		if err != nil {
			WriteErrorsTotal.WithLabelValues("quotes").Inc()
			w.logger.Error("store-quotes-failed",
				zap.Int("quote-count", len(job.quotes)),
				zap.Error(err))
		} else {
			RecordsWrittenTotal.WithLabelValues("quotes").Add(float64(len(job.quotes)))
		}
	}

	if len(job.opps) > 0 && ctx.Err() == nil {
		start := time.Now()
		err := w.storage.StoreOpportunities(ctx, job.opps)
		WriteDurationSeconds.WithLabelValues("opportunities").Observe(time.Since(start).Seconds())
		if err != nil {
			WriteErrorsTotal.WithLabelValues("opportunities").Inc()
			w.logger.Error("store-opportunities-failed",
				zap.Int("opportunity-count", len(job.opps)),
				zap.Error(err))
		} else {
			RecordsWrittenTotal.WithLabelValues("opportunities").Add(float64(len(job.opps)))
		}
	}
}

// Close stops accepting batches and waits for queued ones to be written. If ctx
// ends first, the write in flight is cancelled and the remaining batches are
// dropped. The underlying storage is closed only after the drain loop has exited.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
	case <-ctx.Done():
		w.logger.Warn("storage-drain-interrupted",
			zap.Int("pending-batches", len(w.jobs)),
			zap.Error(ctx.Err()))
		w.abort()
		<-w.done
	}
	w.abort()

	return w.storage.Close()
}
