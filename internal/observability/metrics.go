package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Pick results used as the picks_total label.
const (
	PickHit  = "hit"
	PickMiss = "miss"
)

// SceneCollector bundles Prometheus metrics for the frame loop, the camera
// controller and the control surface. It satisfies the scene's frame,
// transition and asset-failure observer interfaces so the engine can drive
// it directly.
type SceneCollector struct {
	gatherer prometheus.Gatherer

	Frames        prometheus.Counter
	FrameDuration prometheus.Histogram

	Picks             *prometheus.CounterVec
	CameraTransitions *prometheus.CounterVec
	CameraMode        *prometheus.GaugeVec
	SceneBodies       prometheus.Gauge
	AssetFailures     *prometheus.CounterVec

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewSceneCollector registers scene metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSceneCollector(reg prometheus.Registerer) (*SceneCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orrery_frames_total",
		Help: "Total number of frames stepped.",
	}), "orrery_frames_total")
	if err != nil {
		return nil, err
	}

	frameDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_frame_duration_seconds",
		Help:    "Time spent integrating and updating the camera per frame.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0166, 0.033, 0.1},
	}), "orrery_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	picks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_picks_total",
		Help: "Pointer picks, labeled by result (hit or miss).",
	}, []string{"result"}), "orrery_picks_total")
	if err != nil {
		return nil, err
	}

	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_camera_transitions_total",
		Help: "Camera mode changes, labeled by source and destination mode.",
	}, []string{"from", "to"}), "orrery_camera_transitions_total")
	if err != nil {
		return nil, err
	}

	mode, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orrery_camera_mode",
		Help: "1 for the current camera mode, 0 otherwise.",
	}, []string{"mode"}), "orrery_camera_mode")
	if err != nil {
		return nil, err
	}

	bodies, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_scene_bodies",
		Help: "Current number of bodies built into the scene.",
	}), "orrery_scene_bodies")
	if err != nil {
		return nil, err
	}

	assets, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_asset_load_failures_total",
		Help: "Textures and models that failed to load, labeled by the material kind that degraded.",
	}, []string{"kind"}), "orrery_asset_load_failures_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_control_requests_total",
		Help: "Total number of handled control RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "orrery_control_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orrery_control_request_duration_seconds",
		Help:    "Control RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "orrery_control_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	mode.WithLabelValues("free").Set(1)

	return &SceneCollector{
		gatherer:          gatherer,
		Frames:            frames,
		FrameDuration:     frameDuration,
		Picks:             picks,
		CameraTransitions: transitions,
		CameraMode:        mode,
		SceneBodies:       bodies,
		AssetFailures:     assets,
		RPCRequests:       requests,
		RPCDurations:      durations,
	}, nil
}

// FrameRendered records one frame step.
func (c *SceneCollector) FrameRendered(d time.Duration) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	c.FrameDuration.Observe(d.Seconds())
}

// SetBodyCount sets the scene body gauge.
func (c *SceneCollector) SetBodyCount(n int) {
	if c == nil {
		return
	}
	c.SceneBodies.Set(float64(n))
}

// PickResolved counts a pick by result.
func (c *SceneCollector) PickResolved(_ string, hit bool) {
	if c == nil {
		return
	}
	result := PickMiss
	if hit {
		result = PickHit
	}
	c.Picks.WithLabelValues(result).Inc()
}

// ModeChanged counts a camera transition and moves the mode gauge.
func (c *SceneCollector) ModeChanged(from, to, _ string) {
	if c == nil {
		return
	}
	c.CameraTransitions.WithLabelValues(from, to).Inc()
	c.CameraMode.WithLabelValues(from).Set(0)
	c.CameraMode.WithLabelValues(to).Set(1)
}

// AssetLoadFailed counts a degraded material.
func (c *SceneCollector) AssetLoadFailed(kind string) {
	if c == nil {
		return
	}
	c.AssetFailures.WithLabelValues(kind).Inc()
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *SceneCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SceneCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register adds c to reg, returning the already registered collector of the
// same type when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	return register(reg, c, name)
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	return register(reg, h, name)
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	return register(reg, vec, name)
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	return register(reg, vec, name)
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	return register(reg, vec, name)
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	return register(reg, gauge, name)
}
