package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config tunes the Hub. Zero values take the defaults below.
type Config struct {
	// BufferSize is the capacity of the event queue.
	BufferSize int
	// MaxBatch flushes as soon as this many events are pending.
	MaxBatch int
	// MaxWait flushes a partial batch after this long.
	MaxWait time.Duration
	// SinkTimeout bounds each Consume call.
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

const (
	defaultBufferSize  = 1024
	defaultMaxBatch    = 100
	defaultMaxWait     = 250 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
	dropLogEvery       = 5 * time.Second
)

// Hub batches events on a background goroutine and hands them to every sink. Emit never
// blocks; when the queue is full the event is dropped and counted.
type Hub struct {
	cfg    Config
	sinks  []Sink
	queue  chan Event
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	dropped     atomic.Int64
	lastDropLog atomic.Int64
	closed      atomic.Bool
	closeOnce   sync.Once
	sinksOnce   sync.Once
}

// NewHub starts a Hub feeding sinks.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		queue:  make(chan Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go h.loop()
	return h
}

// Emit queues evt. Invalid events and events sent after Close are discarded.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	select {
	case h.queue <- evt:
	default:
		n := h.dropped.Add(1)
		now := time.Now().UnixNano()
		last := h.lastDropLog.Load()
		if now-last >= dropLogEvery.Nanoseconds() && h.lastDropLog.CompareAndSwap(last, now) {
			h.logger.Warn("progress events dropped", zap.Int64("dropped_total", n))
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close drains the queue, flushes the last batch and closes the sinks once.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.stop)
	})
	select {
	case <-h.done:
	case <-ctx.Done():
		return fmt.Errorf("progress hub close: %w", ctx.Err())
	}
	h.sinksOnce.Do(func() {
		for _, s := range h.sinks {
			if err := s.Close(ctx); err != nil {
				h.logger.Warn("progress sink close failed", zap.Error(err))
			}
		}
	})
	return nil
}

func (h *Hub) loop() {
	defer close(h.done)
	batch := make([]Event, 0, h.cfg.MaxBatch)
	ticker := time.NewTicker(h.cfg.MaxWait)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		h.deliver(batch)
		batch = batch[:0]
	}
	for {
		select {
		case evt := <-h.queue:
			batch = append(batch, evt)
			if len(batch) >= h.cfg.MaxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-h.stop:
			for {
				select {
				case evt := <-h.queue:
					batch = append(batch, evt)
					if len(batch) >= h.cfg.MaxBatch {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (h *Hub) deliver(batch []Event) {
	snapshot := append([]Event(nil), batch...)
	for _, s := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := s.Consume(ctx, snapshot); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}
