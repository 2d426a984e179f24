package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/session"
	"github.com/signalsfoundry/orrery/registry"
	"github.com/signalsfoundry/orrery/timectrl"
)

const bufSize = 1 << 20

type harness struct {
	client *SceneControlClient
	sess   *session.Session
}

func newHarness(t *testing.T, reg *registry.Registry, interceptors ...grpc.UnaryServerInterceptor) *harness {
	t.Helper()
	engine, err := core.NewEngine(reg, core.WithViewportSize(800, 600))
	if err != nil {
		t.Fatal(err)
	}
	clock := timectrl.NewTimeController(time.Now(), time.Millisecond, timectrl.RealTime)
	sess := session.New(engine, clock)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx, 0) }()

	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterSceneControlServer(srv, NewServer(sess, nil))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		cancel()
		<-runErr
	})
	return &harness{client: NewSceneControlClient(conn), sess: sess}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func waitMode(t *testing.T, h *harness, mode core.Mode) *structpb.Struct {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := h.client.Snapshot(context.Background(), &emptypb.Empty{})
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if snap.GetFields()["mode"].GetStringValue() == mode.String() {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("mode %s not reached", mode)
	return nil
}

func TestControlPickFocusAndClose(t *testing.T) {
	h := newHarness(t, registry.SolarSystem())
	ctx := context.Background()

	got, err := h.client.Pick(ctx, mustStruct(t, map[string]any{"body": "Saturn"}))
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got.GetFields()["body"].GetStringValue() != "Saturn" {
		t.Fatalf("Pick = %v", got)
	}

	snap := waitMode(t, h, core.ModeFocused)
	if focused := snap.GetFields()["focused"].GetStringValue(); focused != "Saturn" {
		t.Fatalf("focused = %q", focused)
	}
	overlay := snap.GetFields()["overlay"].GetStructValue().GetFields()
	if !overlay["visible"].GetBoolValue() {
		t.Fatal("overlay not visible after arrival")
	}

	closed, err := h.client.Close(ctx, &emptypb.Empty{})
	if err != nil || !closed.GetFields()["closed"].GetBoolValue() {
		t.Fatalf("Close = %v, %v", closed, err)
	}
	waitMode(t, h, core.ModeFree)
}

func TestControlPickMiss(t *testing.T) {
	h := newHarness(t, registry.SolarSystem())
	got, err := h.client.Pick(context.Background(), mustStruct(t, map[string]any{"x": 1, "y": 1}))
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if got.GetFields()["hit"].GetBoolValue() {
		t.Fatalf("corner pick hit %v", got)
	}
	if mode := got.GetFields()["mode"].GetStringValue(); mode != "free" {
		t.Fatalf("mode = %q after miss", mode)
	}
}

func TestControlAddBodyAndInfo(t *testing.T) {
	h := newHarness(t, registry.New())
	ctx := context.Background()

	body := mustStruct(t, map[string]any{
		"name":           "Demo",
		"radius":         4,
		"orbit_distance": 230,
		"color":          0xFFFFFF,
		"info":           map[string]any{"info": "a runtime addition"},
	})
	if _, err := h.client.AddBody(ctx, body); err != nil {
		t.Fatalf("AddBody: %v", err)
	}
	info, err := h.client.Info(ctx, mustStruct(t, map[string]any{"body": "Demo"}))
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if got := info.GetFields()["info"].GetStringValue(); got != "a runtime addition" {
		t.Fatalf("info = %q", got)
	}

	_, err = h.client.AddBody(ctx, body)
	if code := status.Code(err); code != codes.AlreadyExists {
		t.Fatalf("duplicate AddBody code = %v", code)
	}
}

func TestControlErrorCodes(t *testing.T) {
	h := newHarness(t, registry.SolarSystem())
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"info unknown body", func() error {
			_, err := h.client.Info(ctx, mustStruct(t, map[string]any{"body": "Vulcan"}))
			return err
		}, codes.NotFound},
		{"focus unknown body", func() error {
			_, err := h.client.Pick(ctx, mustStruct(t, map[string]any{"body": "Vulcan"}))
			return err
		}, codes.NotFound},
		{"pick without coordinates", func() error {
			_, err := h.client.Pick(ctx, mustStruct(t, map[string]any{"x": 3}))
			return err
		}, codes.InvalidArgument},
		{"resize to zero", func() error {
			_, err := h.client.Resize(ctx, mustStruct(t, map[string]any{"width": 0, "height": 600}))
			return err
		}, codes.InvalidArgument},
		{"resize to a fractional width", func() error {
			_, err := h.client.Resize(ctx, mustStruct(t, map[string]any{"width": 800.7, "height": 600}))
			return err
		}, codes.InvalidArgument},
		{"resize beyond int32", func() error {
			_, err := h.client.Resize(ctx, mustStruct(t, map[string]any{"width": 1024, "height": 1e12}))
			return err
		}, codes.InvalidArgument},
		{"rates with a string", func() error {
			_, err := h.client.SetRates(ctx, mustStruct(t, map[string]any{"orbital": "fast"}))
			return err
		}, codes.InvalidArgument},
		{"rates empty", func() error {
			_, err := h.client.SetRates(ctx, mustStruct(t, map[string]any{}))
			return err
		}, codes.InvalidArgument},
		{"malformed body", func() error {
			_, err := h.client.AddBody(ctx, mustStruct(t, map[string]any{"name": "Flat"}))
			return err
		}, codes.InvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := status.Code(tc.call()); code != tc.code {
				t.Fatalf("code = %v, want %v", code, tc.code)
			}
		})
	}
	if vp := h.sess.Snapshot().Viewport; vp.Width != 800 || vp.Height != 600 {
		t.Fatalf("rejected resizes changed the viewport: %+v", vp)
	}
}

func TestControlSetRatesAndResize(t *testing.T) {
	h := newHarness(t, registry.SolarSystem())
	ctx := context.Background()

	if _, err := h.client.SetRates(ctx, mustStruct(t, map[string]any{"orbital": 2.5, "light": 4})); err != nil {
		t.Fatalf("SetRates: %v", err)
	}
	if _, err := h.client.Resize(ctx, mustStruct(t, map[string]any{"width": 1024, "height": 512})); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if _, err := h.client.Hover(ctx, mustStruct(t, map[string]any{"x": 10, "y": 10})); err != nil {
		t.Fatalf("Hover: %v", err)
	}

	snap := h.sess.Snapshot()
	deadline := time.Now().Add(5 * time.Second)
	for snap.Viewport.Width != 1024 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
		snap = h.sess.Snapshot()
	}
	if snap.Settings.OrbitalMultiplier != 2.5 || snap.Settings.LightIntensity != 4 {
		t.Fatalf("settings = %+v", snap.Settings)
	}
	if snap.Viewport.Width != 1024 || snap.Camera.Aspect != 2 {
		t.Fatalf("viewport = %+v aspect %v", snap.Viewport, snap.Camera.Aspect)
	}
}

func TestRequestIDInterceptorUsesMetadata(t *testing.T) {
	var seen string
	capture := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		seen = logging.RequestIDFromContext(ctx)
		return handler(ctx, req)
	}
	h := newHarness(t, registry.New(), RequestIDUnaryServerInterceptor(nil), TracingUnaryServerInterceptor(), capture)

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDMetadataKey, "req-42")
	if _, err := h.client.Snapshot(ctx, &emptypb.Empty{}); err != nil {
		t.Fatal(err)
	}
	if seen != "req-42" {
		t.Fatalf("request id = %q, want req-42", seen)
	}

	if _, err := h.client.Snapshot(context.Background(), &emptypb.Empty{}); err != nil {
		t.Fatal(err)
	}
	if seen == "" || seen == "req-42" {
		t.Fatalf("generated request id = %q", seen)
	}
}

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "unknown body", err: fmt.Errorf("Info: %w", registry.ErrBodyNotFound), code: codes.NotFound},
		{name: "not in scene", err: core.ErrBodyNotInScene, code: codes.NotFound},
		{name: "invalid body", err: registry.ErrBodyInvalid, code: codes.InvalidArgument},
		{name: "invalid viewport", err: core.ErrInvalidViewport, code: codes.InvalidArgument},
		{name: "duplicate", err: registry.ErrBodyExists, code: codes.AlreadyExists},
		{name: "session closed", err: session.ErrClosed, code: codes.Unavailable},
		{name: "cancelled", err: context.Canceled, code: codes.Canceled},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
