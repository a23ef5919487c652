package droidshell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultJoinTimeout bounds how long Destroy waits for the engine.
const DefaultJoinTimeout = time.Second

// Host is what the platform offers back to the engine and the shell.
type Host interface {
	ShowOSD(msg string)
	SetCaption(caption string)
	ShowKeyboard(show bool)
	ToggleKeyboard()
	SetCursorVisible(visible bool)
}

// State is a lifecycle state of the shell.
type State int

const (
	StateNew State = iota
	StateCreated
	StateRunning
	StatePaused
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ShellOptions configures a Shell. Engine and Host are required.
type ShellOptions struct {
	Paths  PathOptions
	Engine EngineFactory
	Host   Host

	// Input configures the normalizer. Its Out and Keyboard are set by the
	// shell.
	Input NormalizerOptions

	// Pollers defaults to DefaultPollerGroups.
	Pollers []PollerGroup

	// Tap receives a copy of every event pushed to the engine.
	Tap Pusher

	JoinTimeout time.Duration

	// OnTransition is called after every state change.
	OnTransition func(from, to State)

	Logger *slog.Logger
}

// ============================================================================
// Lifecycle Shell
// ============================================================================
// new -> created -> running <-> paused -> destroyed
//
// Create resolves paths, builds the engine and starts the stick pollers and
// the engine goroutine. Destroy stops the pollers, sends QUIT through the
// normalizer and waits a bounded time for the engine; a slow engine is logged
// and abandoned. Destroy is legal from every state and idempotent.
// ============================================================================

// Shell owns the engine and the input path for one platform session.
type Shell struct {
	opts   ShellOptions
	logger *slog.Logger

	normalizer *Normalizer

	mu         sync.Mutex
	state      State
	paths      ResolvedPaths
	engine     Engine
	out        Pusher // engine, then Tap
	emulator   *StickEmulator
	cancel     context.CancelFunc
	engineDone chan struct{}
	engineErr  error
}

// NewShell creates a shell in StateNew.
func NewShell(opts ShellOptions) (*Shell, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("shell: engine factory is required")
	}
	if opts.Host == nil {
		return nil, fmt.Errorf("shell: host is required")
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}

	s := &Shell{
		opts:   opts,
		logger: orDiscard(opts.Logger),
	}

	in := opts.Input
	in.Out = PusherFunc(s.forward)
	in.Keyboard = opts.Host
	if in.Logger == nil {
		in.Logger = s.logger
	}
	s.normalizer = NewNormalizer(in)
	return s, nil
}

// Normalizer is where the platform delivers its input callbacks.
func (s *Shell) Normalizer() *Normalizer { return s.normalizer }

// Host returns the platform bridge.
func (s *Shell) Host() Host { return s.opts.Host }

// State returns the current lifecycle state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paths returns the paths resolved by Create.
func (s *Shell) Paths() ResolvedPaths {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths
}

// EngineDone is closed when the engine goroutine exits. It is nil before
// Create succeeds.
func (s *Shell) EngineDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineDone
}

// EngineErr returns the engine's exit error once EngineDone is closed.
func (s *Shell) EngineErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engineErr
}

func (s *Shell) forward(ev Event) {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()

	if out == nil {
		s.logger.Debug("no engine, dropping event", "event", ev)
		return
	}
	out.Push(ev)
}

func (s *Shell) transitionLocked(to State) (from State) {
	from = s.state
	s.state = to
	return from
}

func (s *Shell) notify(from, to State) {
	s.logger.Info("lifecycle transition", "from", from, "to", to)
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(from, to)
	}
}

// Create starts the session.
func (s *Shell) Create() error {
	s.mu.Lock()
	if s.state != StateNew {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: create from %s", ErrInvalidTransition, st)
	}
	s.mu.Unlock()

	paths, err := ResolvePaths(s.opts.Paths, s.logger)
	if err != nil {
		s.logger.Error("storage check failed", "error", err)
		s.opts.Host.ShowOSD("No storage found: cannot read " + ExpandPath(s.opts.Paths.StorageRoot))
		return err
	}

	s.mu.Lock()
	if s.state != StateNew {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: create from %s", ErrInvalidTransition, st)
	}
	s.mu.Unlock()

	args := paths.EngineArgs()
	engine, err := s.opts.Engine(args, s.opts.Host)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	emulator := NewStickEmulator(s.normalizer, s.normalizer.Sticks(), s.opts.Pollers, s.logger)
	done := make(chan struct{})

	s.mu.Lock()
	if s.state != StateNew {
		st := s.state
		s.mu.Unlock()
		// Destroyed while the engine was being built: run it on a canceled
		// context so it releases whatever the factory acquired.
		cancel()
		go func() {
			if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("abandoned engine exited", "error", err)
			}
		}()
		return fmt.Errorf("%w: create from %s", ErrInvalidTransition, st)
	}
	s.out = Tee(engine, s.opts.Tap)
	s.paths = paths
	s.engine = engine
	s.emulator = emulator
	s.cancel = cancel
	s.engineDone = done
	from := s.transitionLocked(StateCreated)
	s.mu.Unlock()

	emulator.Start(ctx)
	go func() {
		defer close(done)
		err := engine.Run(ctx)
		s.mu.Lock()
		s.engineErr = err
		s.mu.Unlock()
		if err != nil && ctx.Err() == nil {
			s.logger.Error("engine exited", "error", err)
		}
	}()

	s.logger.Info("shell created", "args", args, "save_fallback", paths.SaveFallback)
	s.notify(from, StateCreated)
	return nil
}

// Resume unpauses the engine and hides the system cursor.
func (s *Shell) Resume() error {
	s.mu.Lock()
	if s.state != StateCreated && s.state != StatePaused {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, st)
	}
	engine := s.engine
	from := s.transitionLocked(StateRunning)
	s.mu.Unlock()

	engine.SetPause(false)
	s.opts.Host.SetCursorVisible(false)
	s.notify(from, StateRunning)
	return nil
}

// Pause pauses the engine and shows the system cursor.
func (s *Shell) Pause() error {
	s.mu.Lock()
	if s.state != StateRunning {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, st)
	}
	engine := s.engine
	from := s.transitionLocked(StatePaused)
	s.mu.Unlock()

	engine.SetPause(true)
	s.opts.Host.SetCursorVisible(true)
	s.notify(from, StatePaused)
	return nil
}

// Destroy ends the session. It returns ErrEngineJoinTimeout if the engine
// outlived the join timeout; the shell is destroyed either way.
func (s *Shell) Destroy() error {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return nil
	}
	emulator := s.emulator
	cancel := s.cancel
	done := s.engineDone
	from := s.transitionLocked(StateDestroyed)
	s.mu.Unlock()

	if emulator != nil {
		emulator.Stop()
	}
	s.normalizer.SendQuit()

	var err error
	if done != nil {
		select {
		case <-done:
		case <-time.After(s.opts.JoinTimeout):
			s.logger.Warn("engine did not exit in time, continuing teardown", "timeout", s.opts.JoinTimeout)
			err = ErrEngineJoinTimeout
		}
	}
	if cancel != nil {
		cancel()
	}

	s.notify(from, StateDestroyed)
	return err
}
