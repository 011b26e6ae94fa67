package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lookout-gallery/internal/blob"
	"lookout-gallery/internal/gallery"
	"lookout-gallery/internal/handlers"
	"lookout-gallery/internal/hostapi"
	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"
	"lookout-gallery/internal/middleware"
	"lookout-gallery/internal/probe"
	"lookout-gallery/internal/remote"
	"lookout-gallery/internal/scheduler"
	"lookout-gallery/internal/startup"
	"lookout-gallery/internal/store"
	"lookout-gallery/internal/workers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Initialize the thumbnail store
	storeStart := time.Now()
	st, err := store.New(rootCtx, config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize thumbnail store: %v", err)
	}
	st.SetRetention(config.CacheRetention)
	startup.LogStoreInit(time.Since(storeStart))

	// Initialize media tooling
	if err := probe.InitVips(); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	ffmpegErr := probe.CheckFFmpeg()
	startup.LogProbeInit(ffmpegErr == nil, probe.IsVipsAvailable(), config.SkipVideoProbe)

	prober := probe.New(probe.Config{
		Width:     config.ThumbnailWidth,
		Height:    config.ThumbnailHeight,
		Quality:   config.ThumbnailQuality,
		SkipVideo: config.SkipVideoProbe,
	})

	// Host API connection
	host := hostapi.NewClient(config.HostAPIURL)
	fetcher := remote.New(host)
	go host.Run(rootCtx)

	// Gallery state and work queue
	state := gallery.NewState()
	blobs := blob.NewRegistry()

	ceiling := workers.Ceiling(config.Constrained)
	startup.LogSchedulerInit(ceiling, config.Constrained)

	sched := scheduler.New(rootCtx, state, st, fetcher, host, prober, blobs, scheduler.Config{
		Ceiling:           ceiling,
		DarknessThreshold: float64(config.DarknessThreshold),
		HideBroken:        config.HideBroken,
	})

	// Handlers and router
	h := handlers.New(state, sched, blobs, host, config)
	router := setupRouter(h, blobs)

	startup.LogHTTPRoutes(router, config.LogBlobRequests, config.LogHealthChecks)

	loggingConfig := middleware.DefaultConfig()
	loggingConfig.LogBlobRequests = config.LogBlobRequests
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)

	// Warm up the start path once the host connection is established
	if config.Warmup {
		var warmupOnce sync.Once
		host.OnConnect(func() {
			warmupOnce.Do(func() {
				ctx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
				defer cancel()
				if err := h.Navigate(ctx, config.StartPath); err != nil {
					logging.Warn("Warmup browse of %s failed: %v", config.StartPath, err)
				}
			})
		})
	}

	// Periodic retention sweep
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if n, err := st.PurgeExpired(rootCtx); err != nil {
					logging.Warn("Retention sweep failed: %v", err)
				} else if n > 0 {
					logging.Info("Retention sweep removed %d expired records", n)
				}
			}
		}
	}()

	// Metrics server
	if config.MetricsEnabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+config.MetricsPort, metricsMux); err != nil {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, rootCancel, sched, blobs, st)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, blobs *blob.Registry) *mux.Router {
	r := mux.NewRouter()

	// Health check routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")

	// Gallery API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/gallery", h.GetGallery).Methods("GET")
	api.HandleFunc("/navigate", h.PostNavigate).Methods("POST")
	api.HandleFunc("/refresh", h.PostRefresh).Methods("POST")
	api.HandleFunc("/reconcile", h.PostReconcile).Methods("POST")

	// Thumbnail payloads
	r.Handle("/blob/{token}", blobs).Methods("GET")

	return r
}

func handleShutdown(srv *http.Server, rootCancel context.CancelFunc, sched *scheduler.Scheduler, blobs *blob.Registry, st *store.Store) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping scheduler")
	sched.Close()
	sched.Wait()
	startup.LogShutdownStepComplete("Scheduler stopped")

	startup.LogShutdownStep("Closing host connection")
	rootCancel()
	startup.LogShutdownStepComplete("Host connection closed")

	startup.LogShutdownStep("Releasing thumbnail handles")
	blobs.ReleaseAll()
	startup.LogShutdownStepComplete("Thumbnail handles released")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Closing thumbnail store")
	if err := st.Close(); err != nil {
		logging.Warn("Store close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Thumbnail store closed")
	}

	probe.ShutdownVips()

	startup.LogShutdownComplete()
}
