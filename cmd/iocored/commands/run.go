package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/glustercore/iocore/internal/config"
	"github.com/glustercore/iocore/internal/localentrylock"
	"github.com/glustercore/iocore/internal/logger"
	"github.com/glustercore/iocore/internal/telemetry"
	"github.com/glustercore/iocore/pkg/client"
	"github.com/glustercore/iocore/pkg/dentrylock"
	"github.com/glustercore/iocore/pkg/iothreads"
	"github.com/glustercore/iocore/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	// Registers the promauto-backed metric constructors via package init.
	_ "github.com/glustercore/iocore/pkg/metrics/prometheus"
)

var (
	metricsAddr     string
	metricsEnabled  bool
	pollingInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the client registry, io-thread pool, and dentry lock serializer",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics and /statedump on")
	runCmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "enable Prometheus metrics and the statedump endpoint")
	runCmd.Flags().DurationVar(&pollingInterval, "poll-interval", 2*time.Second, "how often to sample subsystem state into metrics")
}

// server bundles the three long-lived subsystems this command brings up.
type server struct {
	registry   *client.Registry
	ioThreads  *iothreads.IOThreads
	dentrylock *dentrylock.Serializer

	ioMetrics       metrics.IOThreadsMetrics
	registryMetrics metrics.ClientRegistryMetrics
	lockMetrics     metrics.DentryLockMetrics
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	if metricsEnabled {
		metrics.InitRegistry()
	}

	srv := &server{
		registry:        client.NewRegistry(cfg.ClientRegistry.MaxClients),
		registryMetrics: metrics.NewClientRegistryMetrics(),
		lockMetrics:     metrics.NewDentryLockMetrics(),
	}
	srv.ioMetrics = metrics.NewIOThreadsMetrics()

	srv.ioThreads = iothreads.New(cfg.IOThreads, func(pri iothreads.Priority, err error) {
		logger.Error("io-threads watchdog stall", "priority", pri.String(), "error", err)
		metrics.RecordIOThreadStall(srv.ioMetrics, pri)
	})

	srv.dentrylock = dentrylock.New(localentrylock.New(), func(key dentrylock.EntryKey, err error) {
		logger.Warn("entry lock release failed", "parent_gfid", key.ParentGfid, "error", err)
	})

	if err := srv.ioThreads.Start(); err != nil {
		return err
	}
	defer func() {
		if err := srv.ioThreads.Stop(); err != nil {
			logger.Error("io-threads stop error", "error", err)
		}
	}()

	var watcher *config.Watcher
	if GetConfigFile() != "" {
		watcher, err = config.WatchIOThreads(GetConfigFile(), srv.ioThreads, nil)
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	var httpServer *http.Server
	if metricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
		mux.HandleFunc("/statedump", srv.handleStatedump)
		httpServer = &http.Server{Addr: metricsAddr, Handler: mux}

		go func() {
			logger.Info("metrics server listening", "addr", metricsAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	stopPolling := make(chan struct{})
	go srv.pollMetrics(pollingInterval, stopPolling)

	logger.Info("iocored started")
	<-ctx.Done()
	logger.Info("shutting down")

	close(stopPolling)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}

	return nil
}

func (s *server) pollMetrics(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *server) sample() {
	dump := s.ioThreads.Statedump()
	metrics.ObserveIOThreadClasses(s.ioMetrics, dump.Classes)
	metrics.ObserveIOThreadWorkers(s.ioMetrics, dump.CurrentThreads, dump.SleepCount, dump.MaximumThreads)
	metrics.ObserveIOThreadTunables(s.ioMetrics, dump.IdleTime, dump.StackSize)

	summaries := s.registry.Statedump()
	var totalFDs, totalBinds uint64
	active := 0
	for _, c := range summaries {
		if !c.Disconnected {
			active++
		}
		totalFDs += c.FDCount
		totalBinds += uint64(c.BindCount)
	}
	metrics.ObserveClientRegistry(s.registryMetrics, active, totalFDs, totalBinds)

	metrics.ObserveDentryLock(s.lockMetrics, s.dentrylock.ActiveLocks())
}

type statedumpResponse struct {
	IOThreads struct {
		Classes        []iothreads.PriorityStats `json:"classes"`
		CurrCount      int                       `json:"curr_count"`
		SleepCount     int                       `json:"sleep_count"`
		MaximumThreads int                       `json:"maximum_threads_count"`
		IdleTimeSecond float64                   `json:"idle_time_seconds"`
		StackSize      int64                     `json:"stack_size"`
		State          string                    `json:"state"`
	} `json:"io_threads"`
	Clients     []client.ClientSummary `json:"clients"`
	ActiveLocks uint64                  `json:"active_locks"`
}

func (s *server) handleStatedump(w http.ResponseWriter, r *http.Request) {
	var resp statedumpResponse

	dump := s.ioThreads.Statedump()
	resp.IOThreads.Classes = dump.Classes
	resp.IOThreads.CurrCount = dump.CurrentThreads
	resp.IOThreads.SleepCount = dump.SleepCount
	resp.IOThreads.MaximumThreads = dump.MaximumThreads
	resp.IOThreads.IdleTimeSecond = dump.IdleTime.Seconds()
	resp.IOThreads.StackSize = dump.StackSize
	resp.IOThreads.State = dump.State.String()
	resp.Clients = s.registry.Statedump()
	resp.ActiveLocks = s.dentrylock.ActiveLocks()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("statedump encode failed", "error", err)
	}
}
