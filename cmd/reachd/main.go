package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/internal/api"
	"github.com/dmdmdm-nz/reachd/internal/metrics"
	"github.com/dmdmdm-nz/reachd/internal/runtime"
	"github.com/dmdmdm-nz/reachd/pkg/cli"
	"github.com/dmdmdm-nz/reachd/pkg/reachability"
)

func main() {
	// Parse command line flags
	cfg := cli.ParseFlags()

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	if cfg.Once {
		os.Exit(runOnce(cfg))
	}

	log.Infof("Config: %s", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := reachability.DefaultRegistry()

	// Subscribe the collector BEFORE creating the monitor to avoid missing
	// the first transition.
	var collector *metrics.Collector
	var metricsHandler http.Handler
	if cfg.Metrics {
		collector = metrics.NewCollector(registry, reachability.ChangeTopic)
		metricsHandler = collector.Handler()
	}

	monitor, err := newMonitor(cfg)
	if err != nil {
		if !errors.Is(err, reachability.ErrRegistration) {
			log.WithError(err).Fatal("Failed to create reachability monitor")
		}
		log.WithError(err).Warn("Running without connectivity notifications; status stays not_reachable")
	}
	if collector != nil {
		collector.Seed(monitor.TargetHost(), monitor.Status())
	}

	apiSvc := api.NewService(cfg.Host, cfg.Port, monitor, registry, reachability.ChangeTopic, metricsHandler)

	// Closed in reverse: api → metrics → monitor
	super := runtime.NewSupervisor()
	super.Add("monitor", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}, monitor.Close)
	if collector != nil {
		super.Add("metrics", collector.Start, collector.Close)
	}
	super.Add("api", apiSvc.Start, apiSvc.Close)

	if err := super.Start(ctx); err != nil {
		log.WithError(err).Error("Supervisor start failed")
		os.Exit(1)
	}
	if err := super.Wait(ctx); err != nil {
		log.WithError(err).Error("Supervisor wait failed")
		os.Exit(1)
	}
}

func newMonitor(cfg *cli.Config) (*reachability.Monitor, error) {
	return reachability.New(
		reachability.WithTargetHost(cfg.Target),
		reachability.WithCellularPrefixes(cfg.CellularPrefixes...),
		reachability.WithResolveTimeout(cfg.ResolveTimeout),
		reachability.WithOnChange(func(isReachable bool) {
			log.WithField("reachable", isReachable).Info("Reachability changed")
		}),
	)
}

// runOnce prints the current status as JSON. A named target resolves
// asynchronously, so wait up to the resolve timeout for its first report.
func runOnce(cfg *cli.Config) int {
	monitor, err := newMonitor(cfg)
	defer monitor.Close()
	if err != nil {
		log.WithError(err).Warn("Connectivity notifications unavailable")
	}

	if err == nil && cfg.Target != "" && !monitor.IsReachable() {
		deadline := time.Now().Add(cfg.ResolveTimeout)
		for time.Now().Before(deadline) && !monitor.IsReachable() {
			time.Sleep(50 * time.Millisecond)
		}
	}

	status := monitor.Status()
	out, _ := json.Marshal(map[string]any{
		"host":         cfg.Target,
		"status":       status,
		"reachable":    status.IsReachable(),
		"cellular":     monitor.IsReachableViaCellular(),
		"localNetwork": monitor.IsReachableViaLocalNetwork(),
	})
	fmt.Println(string(out))

	if !status.IsReachable() {
		return 1
	}
	return 0
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}
