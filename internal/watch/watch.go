// Package watch reloads a registry file while a session runs. Bodies are
// immutable once registered, so a reload only ever adds new ones.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/registry"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// Builder adds registered bodies to the running scene.
type Builder interface {
	BuildRegistered(ctx context.Context, names ...string) error
}

// Watcher reloads one registry file on change.
type Watcher struct {
	path     string
	reg      *registry.Registry
	builder  Builder
	log      logging.Logger
	debounce time.Duration
	tracer   trace.Tracer

	mu      sync.Mutex
	reloads int
}

// Option customises a Watcher.
type Option func(*Watcher)

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets how long the file must be quiet before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for path. The registry should already hold the
// file's initial contents.
func New(path string, reg *registry.Registry, builder Builder, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		reg:      reg,
		builder:  builder,
		log:      logging.Noop(),
		debounce: DefaultDebounce,
		tracer:   observability.Tracer(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reloads returns how many reloads have completed.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that editors which replace the file on save are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info(ctx, "watching registry", logging.String("path", w.path))

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "registry watch error", logging.Err(err))

		case <-pending:
			pending = nil
			if err := w.Reload(ctx); err != nil {
				// A half-written file fails to parse; the next write retries.
				w.log.Warn(ctx, "registry reload failed", logging.String("path", w.path), logging.Err(err))
			}
		}
	}
}

// Reload reads the file and adds any new bodies to the scene.
func (w *Watcher) Reload(ctx context.Context) error {
	ctx, span := w.tracer.Start(ctx, "registry.reload", trace.WithAttributes(attribute.String("path", w.path)))
	defer span.End()

	sum, err := registry.LoadFile(w.reg, w.path)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("bodies.added", len(sum.Bodies)))
	if len(sum.Bodies) > 0 {
		if err := w.builder.BuildRegistered(ctx, sum.Bodies...); err != nil {
			span.RecordError(err)
			return fmt.Errorf("build reloaded bodies: %w", err)
		}
	}

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	w.log.Info(ctx, "registry reloaded",
		logging.Int("added", len(sum.Bodies)),
		logging.Int("unchanged", len(sum.Skipped)),
	)
	return nil
}
