// Package session owns a running scene. One goroutine steps the engine
// frame by frame; everything else talks to it through queued commands and
// published snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/timectrl"
)

var (
	// ErrClosed is returned for commands sent to a session that has stopped.
	ErrClosed = errors.New("session closed")
	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("session already running")
)

const defaultQueueSize = 64

// Command mutates the engine between frames.
type Command func(e *core.Engine) error

type command struct {
	ctx    context.Context
	name   string
	fn     Command
	taken  chan struct{}
	result chan error
}

// Session runs one engine on its own goroutine.
type Session struct {
	id     string
	engine *core.Engine
	clock  *timectrl.TimeController
	log    logging.Logger
	tracer trace.Tracer

	cmds    chan command
	done    chan struct{}
	running atomic.Bool

	snap atomic.Pointer[core.Snapshot]
}

// Option customises a Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithQueueSize bounds the number of pending commands.
func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.cmds = make(chan command, n)
		}
	}
}

// New wraps engine in a session driven by clock. The engine must not be
// touched directly once Run has started.
func New(engine *core.Engine, clock *timectrl.TimeController, opts ...Option) *Session {
	s := &Session{
		id:     logging.NewID(),
		engine: engine,
		clock:  clock,
		log:    logging.Noop(),
		tracer: observability.Tracer(),
		cmds:   make(chan command, defaultQueueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logging.String("session_id", s.id))
	snap := engine.Snapshot()
	s.snap.Store(&snap)
	clock.AddListener(s.frame)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run steps the engine on every clock frame until ctx is cancelled or
// duration (when positive) has elapsed. Pending commands fail with
// ErrClosed once Run returns.
func (s *Session) Run(ctx context.Context, duration time.Duration) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)

	s.log.Info(ctx, "session started",
		logging.String("clock_mode", s.clock.Mode.String()),
		logging.Duration("frame_interval", s.clock.Interval),
	)
	err := s.clock.Run(ctx, duration)
	snap := s.Snapshot()
	s.log.Info(context.Background(), "session stopped",
		logging.Int("frames", int(snap.Frame)),
		logging.String("mode", snap.Mode),
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns the state published after the latest frame.
func (s *Session) Snapshot() core.Snapshot {
	return *s.snap.Load()
}

// Do queues fn to run between frames and waits for its result. A command
// whose ctx ends before it is applied is dropped and Do returns ctx.Err().
// A command already running when ctx ends is waited for, and Do returns
// its result.
func (s *Session) Do(ctx context.Context, name string, fn Command) error {
	ctx, span := s.tracer.Start(ctx, "session."+name,
		trace.WithAttributes(attribute.String("orrery.session_id", s.id)))
	defer span.End()

	cmd := command{ctx: ctx, name: name, fn: fn, taken: make(chan struct{}), result: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return s.fail(span, ctx.Err())
	case <-s.done:
		return s.fail(span, ErrClosed)
	}

	select {
	case err := <-cmd.result:
		if err != nil {
			return s.fail(span, err)
		}
		return nil
	case <-ctx.Done():
		// Once the loop has taken the command it will finish it; report
		// what actually happened rather than the cancellation.
		select {
		case <-cmd.taken:
			if err := <-cmd.result; err != nil {
				return s.fail(span, err)
			}
			return nil
		default:
			return s.fail(span, ctx.Err())
		}
	case <-s.done:
		// The loop may have applied the command just before stopping.
		select {
		case err := <-cmd.result:
			return err
		default:
			return s.fail(span, ErrClosed)
		}
	}
}

// Query runs fn between frames and returns its value. The value is only
// read once the loop has handed back the command's result.
func Query[T any](ctx context.Context, s *Session, name string, fn func(e *core.Engine) (T, error)) (T, error) {
	values := make(chan T, 1)
	err := s.Do(ctx, name, func(e *core.Engine) error {
		v, err := fn(e)
		values <- v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-values, nil
}

func (s *Session) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// frame runs on the clock goroutine: apply queued commands, then step.
func (s *Session) frame(elapsed time.Duration, _ time.Time) {
	s.drain()
	snap := s.engine.Step(elapsed)
	s.snap.Store(&snap)
}

func (s *Session) drain() {
	for {
		select {
		case cmd := <-s.cmds:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Session) apply(cmd command) {
	close(cmd.taken)
	if err := cmd.ctx.Err(); err != nil {
		s.log.Debug(cmd.ctx, "command dropped", logging.String("command", cmd.name), logging.Err(err))
		cmd.result <- err
		return
	}
	err := s.run(cmd)
	if err != nil {
		s.log.Debug(cmd.ctx, "command failed", logging.String("command", cmd.name), logging.Err(err))
	}
	cmd.result <- err
}

// run isolates a panicking command so it cannot stop the frame loop.
func (s *Session) run(cmd command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(cmd.ctx, "command panicked", logging.String("command", cmd.name), logging.Any("panic", r))
			err = fmt.Errorf("command %s panicked: %v", cmd.name, r)
		}
	}()
	return cmd.fn(s.engine)
}
