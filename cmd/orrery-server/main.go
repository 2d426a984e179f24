package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/control"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/internal/session"
	"github.com/signalsfoundry/orrery/internal/watch"
	"github.com/signalsfoundry/orrery/registry"
	"github.com/signalsfoundry/orrery/timectrl"
)

func main() {
	os.Exit(serve(os.Args[1:]))
}

// serve runs the server and returns the process exit code. Deferred
// shutdown work runs before main exits.
func serve(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orrery-server: %v\n", err)
		return 2
	}

	fs := flag.NewFlagSet("orrery-server", flag.ContinueOnError)
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "TCP address the control gRPC server listens on")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "HTTP address for Prometheus /metrics (empty disables)")
	fs.StringVar(&cfg.RegistryPath, "registry", cfg.RegistryPath, "YAML or JSON body registry (empty uses the built-in solar system)")
	fs.StringVar(&cfg.AssetRoot, "assets", cfg.AssetRoot, "directory textures are resolved against (empty skips texture loading)")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the registry file when it changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return 1
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		return 1
	}
	defer lis.Close()

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "orrery-server exited", logging.Err(err))
		return 1
	}
	return 0
}

// run serves the scene on lis until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, log logging.Logger, lis net.Listener) error {
	collector, err := observability.NewSceneCollector(nil)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	timing, err := cfg.Timing()
	if err != nil {
		return err
	}

	var assets core.AssetLoader = core.NoAssets{}
	if cfg.AssetRoot != "" {
		assets = core.FileAssetLoader{Root: cfg.AssetRoot}
	}

	engine, err := core.NewEngine(reg,
		core.WithCameraConfig(cfg.CameraConfig()),
		core.WithSatelliteTiming(timing),
		core.WithViewportSize(cfg.ViewportWidth, cfg.ViewportHeight),
		core.WithLogger(log),
		core.WithObserver(collector),
		core.WithFrameObserver(collector),
		core.WithBuilderOptions(
			core.WithAssetLoader(assets),
			core.WithAssetFailureRecorder(collector),
			core.WithEpoch(cfg.EpochOr(time.Now().UTC())),
		),
	)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	clock := timectrl.NewTimeController(time.Now().UTC(), cfg.FrameInterval(), timectrl.RealTime)
	sess := session.New(engine, clock, session.WithLogger(log))

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			control.RequestIDUnaryServerInterceptor(log),
			control.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	control.RegisterSceneControlServer(server, control.NewServer(sess, log))

	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(gctx, 0)
	})
	g.Go(func() error {
		log.Info(gctx, "starting control gRPC server", logging.String("addr", lis.Addr().String()))
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})
	if cfg.Watch && cfg.RegistryPath != "" {
		watcher := watch.New(cfg.RegistryPath, reg, sess, watch.WithLogger(log))
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down orrery server")
		server.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}

func loadRegistry(cfg config.Config) (*registry.Registry, error) {
	if cfg.RegistryPath == "" {
		return registry.SolarSystem(), nil
	}
	reg := registry.New()
	if _, err := registry.LoadFile(reg, cfg.RegistryPath); err != nil {
		return nil, fmt.Errorf("load registry %s: %w", cfg.RegistryPath, err)
	}
	return reg, nil
}

func serveMetrics(addr string, collector *observability.SceneCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
