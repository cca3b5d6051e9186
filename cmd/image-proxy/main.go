package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-proxy/internal/engine"
	"image-proxy/internal/engine/vips"
	"image-proxy/internal/handlers"
	"image-proxy/internal/logging"
	"image-proxy/internal/memory"
	"image-proxy/internal/metrics"
	"image-proxy/internal/middleware"
	"image-proxy/internal/origin"
	"image-proxy/internal/policy"
	"image-proxy/internal/startup"
	"image-proxy/internal/streaming"
	"image-proxy/internal/transcoder"
	"image-proxy/internal/workers"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = 15 * time.Second
)

func main() {
	startTime := time.Now()

	// Must run before anything allocates much
	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memResult)

	metrics.InitializeMetrics(policy.Reasons)

	// Transform engine
	eng, vipsEngine := newEngine(config.Engine)
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion, eng.Name())

	// Memory monitor, counting libvips buffers when vips is in use
	monitorConfig := memory.DefaultConfig()
	if vipsEngine != nil {
		monitorConfig.External = vipsEngine.MemoryInUse
	}
	monitor := memory.NewMonitor(monitorConfig)
	monitor.Start()

	var collector *metrics.Collector
	if vipsEngine != nil {
		collector = metrics.NewCollector(vipsEngine, collectorInterval)
		collector.Start()
	}

	streamConfig := streaming.Config{
		WriteTimeout: config.StreamWriteTimeout,
		IdleTimeout:  config.StreamIdleTimeout,
		ChunkSize:    config.StreamChunkSize,
	}

	fetcher := origin.New(origin.Config{
		Timeout:             config.OriginTimeout,
		BlockPrivate:        config.BlockPrivateOrigins,
		UserAgent:           config.UserAgent,
		MaxIdleConnsPerHost: workers.ForIO(0),
	})
	pipeline := transcoder.New(eng, transcoder.Config{
		MaxHeight: config.MaxImageHeight,
		Stream:    streamConfig,
	})

	h := handlers.New(fetcher, pipeline, monitor, handlers.Config{
		Thresholds: policy.Thresholds{
			Min:            config.MinCompressLength,
			TransparentMin: config.MinTransparentCompressLength,
		},
		DefaultQuality: config.DefaultQuality,
		Stream:         streamConfig,
	})

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           wrapMiddleware(router, config),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Slow clients are handled per write by the streaming package
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           setupMetricsRouter(h),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return serve(srv) })
	if metricsSrv != nil {
		g.Go(func() error { return serve(metricsSrv) })
	}
	g.Go(func() error {
		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())
		case <-ctx.Done():
			startup.LogShutdownInitiated("server error")
		}
		signal.Stop(sigChan)

		shutdown(srv, metricsSrv, collector, monitor, vipsEngine != nil)
		return nil
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := g.Wait(); err != nil {
		startup.LogFatal("Server error: %v", err)
	}
}

// newEngine builds the configured transform engine. The vips engine is also
// returned on its own since it doubles as a stats and memory source.
func newEngine(name string) (engine.Engine, *vips.Engine) {
	switch name {
	case startup.EngineImaging:
		startup.LogEngineInit(engine.ImagingName, 1)
		return engine.NewImaging(), nil
	default:
		concurrency := workers.ForCPU(0)
		startup.LogEngineInit(vips.Name, concurrency)
		e := vips.New(vips.DefaultConfig(concurrency))
		return e, e
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.HandleFunc("/favicon.ico", h.Favicon).Methods("GET")

	// Proxy entry point
	r.HandleFunc("/", h.Proxy).Methods("GET").Name("proxy")

	return r
}

func setupMetricsRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET", "HEAD")
	return r
}

// wrapMiddleware applies the middleware chain, outermost first: request id,
// access log, metrics, response compression
func wrapMiddleware(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(router)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	return middleware.RequestID()(handler)
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func shutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, monitor *memory.Monitor, vipsStarted bool) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	drained := true
	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		drained = false
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if collector != nil {
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	monitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	// libvips must outlive every in-flight transcode
	if vipsStarted && drained {
		startup.LogShutdownStep("Shutting down libvips")
		vips.Shutdown()
		startup.LogShutdownStepComplete("libvips stopped")
	}

	startup.LogShutdownComplete()
}
