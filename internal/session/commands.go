package session

import (
	"context"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
)

// PickResult reports the outcome of a pick.
type PickResult struct {
	Body string
	Hit  bool
	Mode string
}

// Pick selects the body under a pixel position.
func (s *Session) Pick(ctx context.Context, px, py float64) (PickResult, error) {
	return Query(ctx, s, "pick", func(e *core.Engine) (PickResult, error) {
		name, hit := e.PickPixel(px, py)
		return PickResult{Body: name, Hit: hit, Mode: e.Controller.Mode().String()}, nil
	})
}

// Focus starts a transition towards a body by name.
func (s *Session) Focus(ctx context.Context, name string) error {
	return s.Do(ctx, "focus", func(e *core.Engine) error {
		return e.Controller.Focus(name)
	})
}

// Hover records the pointer at a pixel position.
func (s *Session) Hover(ctx context.Context, px, py float64) error {
	return s.Do(ctx, "hover", func(e *core.Engine) error {
		e.HoverPixel(px, py)
		return nil
	})
}

// Close ends the current focus. It reports whether a focus was active.
func (s *Session) Close(ctx context.Context) (bool, error) {
	return Query(ctx, s, "close", func(e *core.Engine) (bool, error) {
		return e.Controller.Close(), nil
	})
}

// SetRates applies user rate controls; nil values are unchanged.
func (s *Session) SetRates(ctx context.Context, orbital, rotation, light *float64) error {
	return s.Do(ctx, "set_rates", func(e *core.Engine) error {
		e.SetRates(orbital, rotation, light)
		return nil
	})
}

// Resize applies a window resize.
func (s *Session) Resize(ctx context.Context, width, height int) error {
	return s.Do(ctx, "resize", func(e *core.Engine) error {
		return e.Resize(width, height)
	})
}

// AddBody registers a body and adds it to the running scene.
func (s *Session) AddBody(ctx context.Context, b *model.Body, info *model.BodyInfo) error {
	return s.Do(ctx, "add_body", func(e *core.Engine) error {
		return e.AddBody(b, info)
	})
}

// BuildRegistered adds bodies already in the registry to the scene.
func (s *Session) BuildRegistered(ctx context.Context, names ...string) error {
	return s.Do(ctx, "build_registered", func(e *core.Engine) error {
		for _, name := range names {
			if err := e.BuildRegistered(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Info returns the overlay metadata for a body.
func (s *Session) Info(ctx context.Context, name string) (model.BodyInfo, error) {
	return Query(ctx, s, "info", func(e *core.Engine) (model.BodyInfo, error) {
		return e.Registry.Info(name)
	})
}
