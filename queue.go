package droidshell

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the engine queue capacity.
const DefaultQueueSize = 256

// Engine is the native runtime the shell drives. Push must not block.
type Engine interface {
	Pusher
	SetPause(paused bool)

	// Run blocks until the engine exits, normally after it receives QUIT.
	Run(ctx context.Context) error
}

// EngineFactory constructs an engine from its command line. The host gives
// the engine its way back to the platform.
type EngineFactory func(args []string, host Host) (Engine, error)

// ============================================================================
// Event Queue
// ============================================================================
// Single hand-off point between the input side and the engine thread. Push
// never blocks: when the engine falls behind, events are dropped and counted.
// QUIT is never dropped; a full queue gives up its oldest events for it.
// ============================================================================

// Queue is a bounded, non-blocking event queue.
type Queue struct {
	ch     chan Event
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to size events.
func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:     make(chan Event, size),
		logger: orDiscard(logger),
	}
}

// Push enqueues ev, dropping it if the queue is full or closed.
func (q *Queue) Push(ev Event) {
	if ev.Kind == KindQuit {
		q.pushQuit(ev)
		return
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		q.logger.Debug("event queue closed, dropping event", "event", ev)
		return
	}

	select {
	case q.ch <- ev:
	default:
		q.dropped.Add(1)
		q.logger.Warn("event queue full, dropping event", "event", ev)
	}
}

// pushQuit enqueues ev, evicting the oldest queued events until it fits.
// The write lock keeps other producers out while room is made.
func (q *Queue) pushQuit(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.dropped.Add(1)
		q.logger.Warn("event queue closed, dropping quit")
		return
	}

	for {
		select {
		case q.ch <- ev:
			return
		default:
		}

		select {
		case old := <-q.ch:
			q.dropped.Add(1)
			q.logger.Warn("event queue full, evicting event for quit", "event", old)
		default:
			// The engine drained it meanwhile; retry the send.
		}
	}
}

// Events is the draining side of the queue.
func (q *Queue) Events() <-chan Event { return q.ch }

// Close stops accepting events. Events already queued can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped returns how many events were discarded.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// ============================================================================
// Loopback Engine
// ============================================================================

// LoopbackEngine is a headless engine: it drains its queue and hands every
// event to a sink. It is what the desktop host runs when no native runtime
// is linked in.
type LoopbackEngine struct {
	args   []string
	queue  *Queue
	sink   Pusher
	host   Host
	logger *slog.Logger

	paused atomic.Bool
}

// NewLoopbackEngine creates an engine draining queue into sink. Sink and
// host may be nil.
func NewLoopbackEngine(args []string, queue *Queue, sink Pusher, host Host, logger *slog.Logger) *LoopbackEngine {
	return &LoopbackEngine{
		args:   args,
		queue:  queue,
		sink:   sink,
		host:   host,
		logger: orDiscard(logger),
	}
}

// LoopbackFactory returns an EngineFactory building loopback engines with
// their own queue of the given size.
func LoopbackFactory(queueSize int, sink Pusher, logger *slog.Logger) EngineFactory {
	return func(args []string, host Host) (Engine, error) {
		return NewLoopbackEngine(args, NewQueue(queueSize, logger), sink, host, logger), nil
	}
}

// Push implements Engine.
func (e *LoopbackEngine) Push(ev Event) { e.queue.Push(ev) }

// SetPause implements Engine.
func (e *LoopbackEngine) SetPause(paused bool) {
	if e.paused.Swap(paused) == paused {
		return
	}
	e.logger.Info("engine pause changed", "paused", paused)
}

// Paused reports the last value passed to SetPause.
func (e *LoopbackEngine) Paused() bool { return e.paused.Load() }

// Run implements Engine. It returns nil after QUIT, ctx.Err() on
// cancellation and ErrQueueClosed if the queue ends first.
func (e *LoopbackEngine) Run(ctx context.Context) error {
	e.logger.Info("engine starting", "args", e.args)
	if e.host != nil && len(e.args) > 0 {
		e.host.SetCaption(e.args[0])
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping (context canceled)")
			return ctx.Err()

		case ev, ok := <-e.queue.Events():
			if !ok {
				e.logger.Warn("engine stopping (queue closed before quit)")
				return ErrQueueClosed
			}
			e.logger.Debug("engine event", "event", ev, "paused", e.paused.Load())
			if e.sink != nil {
				e.sink.Push(ev)
			}
			if ev.Kind == KindQuit {
				e.logger.Info("engine stopping (quit)")
				return nil
			}
		}
	}
}
