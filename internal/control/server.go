package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/session"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/registry"
)

// Server implements SceneControlServer on top of a session. Every call is
// queued onto the session's frame loop.
type Server struct {
	sess *session.Session
	log  logging.Logger
}

// NewServer wraps a running session.
func NewServer(sess *session.Session, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{sess: sess, log: log}
}

var _ SceneControlServer = (*Server)(nil)

// Pick implements SceneControlServer.
func (s *Server) Pick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if name, ok := stringField(req, "body"); ok {
		if err := s.sess.Focus(ctx, name); err != nil {
			return nil, ToStatusError(err)
		}
		return newStruct(map[string]any{"body": name, "hit": true, "mode": core.ModeTransitioningIn.String()})
	}

	x, y, err := point(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	res, err := s.sess.Pick(ctx, x, y)
	if err != nil {
		return nil, ToStatusError(err)
	}
	logging.FromContext(ctx, s.log).Debug(ctx, "pick",
		logging.Float64("x", x),
		logging.Float64("y", y),
		logging.Bool("hit", res.Hit),
		logging.String("body", res.Body),
	)
	return newStruct(map[string]any{"body": res.Body, "hit": res.Hit, "mode": res.Mode})
}

// Hover implements SceneControlServer.
func (s *Server) Hover(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	x, y, err := point(req)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sess.Hover(ctx, x, y); err != nil {
		return nil, ToStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// Close implements SceneControlServer.
func (s *Server) Close(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	closed, err := s.sess.Close(ctx)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return newStruct(map[string]any{"closed": closed})
}

// SetRates implements SceneControlServer.
func (s *Server) SetRates(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	orbital, err := optionalNumber(req, "orbital")
	if err != nil {
		return nil, ToStatusError(err)
	}
	rotation, err := optionalNumber(req, "rotation")
	if err != nil {
		return nil, ToStatusError(err)
	}
	light, err := optionalNumber(req, "light")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if orbital == nil && rotation == nil && light == nil {
		return nil, ToStatusError(fmt.Errorf("%w: one of orbital, rotation, light is required", ErrInvalidRequest))
	}
	if err := s.sess.SetRates(ctx, orbital, rotation, light); err != nil {
		return nil, ToStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// Resize implements SceneControlServer.
func (s *Server) Resize(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	w, err := dimension(req, "width")
	if err != nil {
		return nil, ToStatusError(err)
	}
	h, err := dimension(req, "height")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sess.Resize(ctx, w, h); err != nil {
		return nil, ToStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// AddBody implements SceneControlServer.
func (s *Server) AddBody(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	raw, err := json.Marshal(req.AsMap())
	if err != nil {
		return nil, ToStatusError(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}
	body, info, err := registry.DecodeBody(bytes.NewReader(raw), registry.FormatJSON)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if err := s.sess.AddBody(ctx, body, info); err != nil {
		return nil, ToStatusError(err)
	}
	logging.FromContext(ctx, s.log).Info(ctx, "body added over control", logging.String("body", body.Name))
	return &emptypb.Empty{}, nil
}

// Snapshot implements SceneControlServer.
func (s *Server) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return newStruct(SnapshotMap(s.sess.Snapshot()))
}

// Info implements SceneControlServer.
func (s *Server) Info(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, ok := stringField(req, "body")
	if !ok {
		return nil, ToStatusError(fmt.Errorf("%w: body is required", ErrInvalidRequest))
	}
	info, err := s.sess.Info(ctx, name)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return newStruct(infoMap(name, info))
}

// SnapshotMap renders a snapshot as plain values for a Struct.
func SnapshotMap(snap core.Snapshot) map[string]any {
	bodies := make([]any, 0, len(snap.Bodies))
	for _, b := range snap.Bodies {
		sats := make([]any, 0, len(b.Satellites))
		for _, sat := range b.Satellites {
			sats = append(sats, map[string]any{"name": sat.Name, "position": vec(sat.Position)})
		}
		bodies = append(bodies, map[string]any{
			"name":        b.Name,
			"position":    vec(b.Position),
			"orbit_angle": b.OrbitAngle,
			"spin_angle":  b.SpinAngle,
			"satellites":  sats,
		})
	}
	return map[string]any{
		"frame":      float64(snap.Frame),
		"elapsed_ms": float64(snap.Elapsed.Milliseconds()),
		"mode":       snap.Mode,
		"focused":    snap.Focused,
		"hovered":    snap.Hovered,
		"camera": map[string]any{
			"position": vec(snap.Camera.Position),
			"target":   vec(snap.Camera.Target),
			"aspect":   snap.Camera.Aspect,
		},
		"viewport": map[string]any{
			"width":  float64(snap.Viewport.Width),
			"height": float64(snap.Viewport.Height),
		},
		"settings": map[string]any{
			"orbital":  snap.Settings.OrbitalMultiplier,
			"rotation": snap.Settings.RotationMultiplier,
			"light":    snap.Settings.LightIntensity,
		},
		"overlay": map[string]any{
			"visible": snap.Overlay.Visible,
			"name":    snap.Overlay.Name,
		},
		"bodies": bodies,
	}
}

func infoMap(name string, info model.BodyInfo) map[string]any {
	return map[string]any{
		"body":     name,
		"radius":   info.Radius,
		"tilt":     info.Tilt,
		"rotation": info.Rotation,
		"orbit":    info.Orbit,
		"distance": info.Distance,
		"moons":    info.Moons,
		"info":     info.Info,
	}
}

func vec(v core.Vec3) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y, "z": v.Z}
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return st, nil
}

func point(req *structpb.Struct) (float64, float64, error) {
	x, err := number(req, "x")
	if err != nil {
		return 0, 0, err
	}
	y, err := number(req, "y")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func number(req *structpb.Struct, key string) (float64, error) {
	v, err := optionalNumber(req, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
	}
	return *v, nil
}

// dimension reads a whole pixel count. Fractions and values outside the
// int32 range are rejected rather than truncated.
func dimension(req *structpb.Struct, key string) (int, error) {
	v, err := number(req, key)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be a whole number of pixels, got %v", ErrInvalidRequest, key, v)
	}
	return int(v), nil
}

func optionalNumber(req *structpb.Struct, key string) (*float64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
	}
	return &n.NumberValue, nil
}

func stringField(req *structpb.Struct, key string) (string, bool) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", false
	}
	s := v.GetStringValue()
	return s, s != ""
}
