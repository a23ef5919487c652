package droidshell

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default poll periods. Group A (horizontal on the stock layout) repeats
// faster than group B.
const (
	DefaultStickPeriodA = 5 * time.Millisecond
	DefaultStickPeriodB = 10 * time.Millisecond
)

// KeyGenerator synthesizes key presses into the input path.
type KeyGenerator interface {
	GenerateKey(code, action int) bool
}

// DirectionKey is the key pulsed while a direction flag is set.
type DirectionKey struct {
	Index   int `yaml:"index"`
	KeyCode int `yaml:"key_code"`
}

// DefaultDirectionKeys maps the four direction slots onto the D-pad.
func DefaultDirectionKeys() []DirectionKey {
	return []DirectionKey{
		{Index: DirRight, KeyCode: KeyCodeDPadRight},
		{Index: DirLeft, KeyCode: KeyCodeDPadLeft},
		{Index: DirDown, KeyCode: KeyCodeDPadDown},
		{Index: DirUp, KeyCode: KeyCodeDPadUp},
	}
}

// PollerGroup is one periodic poller: which flag vector it reads, how often,
// and which keys it pulses.
type PollerGroup struct {
	Name       string
	Period     time.Duration
	Group      StickGroup
	Directions []DirectionKey
}

// DefaultPollerGroups returns one poller per stick.
func DefaultPollerGroups() []PollerGroup {
	return []PollerGroup{
		{Name: "a", Period: DefaultStickPeriodA, Group: StickA, Directions: DefaultDirectionKeys()},
		{Name: "b", Period: DefaultStickPeriodB, Group: StickB, Directions: DefaultDirectionKeys()},
	}
}

// ============================================================================
// Digital-Stick Emulator
// ============================================================================
// Each poller wakes on its own ticker, samples its flag vector and pulses
// every active direction: all key-downs first, then the matching key-ups in
// the same order. A held stick therefore auto-repeats at the poll rate.
// Cancellation is checked after every wake, before anything is pulsed.
// ============================================================================

// StickEmulator runs the pollers.
type StickEmulator struct {
	keys   KeyGenerator
	flags  *StickFlags
	groups []PollerGroup
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStickEmulator creates an emulator. Nil groups means DefaultPollerGroups.
func NewStickEmulator(keys KeyGenerator, flags *StickFlags, groups []PollerGroup, logger *slog.Logger) *StickEmulator {
	if groups == nil {
		groups = DefaultPollerGroups()
	}
	return &StickEmulator{
		keys:   keys,
		flags:  flags,
		groups: groups,
		logger: orDiscard(logger),
	}
}

// Start launches one goroutine per group. The pollers run until ctx is
// canceled or Stop is called. Starting a running emulator does nothing.
func (e *StickEmulator) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	for _, g := range e.groups {
		if g.Period <= 0 {
			e.logger.Warn("stick poller disabled (non-positive period)", "group", g.Name)
			continue
		}
		e.wg.Add(1)
		go func(g PollerGroup) {
			defer e.wg.Done()
			e.run(ctx, g)
		}(g)
	}
}

// Stop cancels every poller and waits for them to exit.
func (e *StickEmulator) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

func (e *StickEmulator) run(ctx context.Context, g PollerGroup) {
	e.logger.Info("stick poller started", "group", g.Name, "period", g.Period)
	defer e.logger.Info("stick poller finished", "group", g.Name)

	ticker := time.NewTicker(g.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			e.Pulse(g)
		}
	}
}

// Pulse runs one tick of g and returns the number of directions pulsed.
func (e *StickEmulator) Pulse(g PollerGroup) int {
	flags := e.flags.Group(g.Group)
	if flags == nil {
		return 0
	}

	held := make([]int, 0, len(g.Directions))
	for _, d := range g.Directions {
		if flags.Get(d.Index) {
			e.keys.GenerateKey(d.KeyCode, KeyActionDown)
			held = append(held, d.KeyCode)
		}
	}
	for _, code := range held {
		e.keys.GenerateKey(code, KeyActionUp)
	}
	return len(held)
}
