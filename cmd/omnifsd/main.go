// Command omnifsd runs the OmniFS server: it formats the container file on
// first launch, loads it on every subsequent launch, and serves the
// line-delimited JSON wire protocol over TCP alongside the metrics/health/
// status diagnostic listeners.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"strconv"

	"github.com/omnifs/omnifs/internal/circuit"
	"github.com/omnifs/omnifs/internal/config"
	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/engine"
	"github.com/omnifs/omnifs/internal/logging"
	"github.com/omnifs/omnifs/internal/metrics"
	"github.com/omnifs/omnifs/internal/server"
	"github.com/omnifs/omnifs/pkg/errors"
	"github.com/omnifs/omnifs/pkg/health"
	"github.com/omnifs/omnifs/pkg/retry"
	"github.com/omnifs/omnifs/pkg/status"
)

func main() {
	containerConfigPath := flag.String("config", "./default.uconf", "path to the container key=value config file")
	containerPath := flag.String("container", "./my_filesystem.omni", "path to the OmniFS container file")
	serverConfigPath := flag.String("server-config", "./server.yaml", "path to the ambient server YAML config")
	flag.Parse()

	log := logging.Default()

	serverCfg := config.NewDefaultServerConfig()
	if _, err := os.Stat(*serverConfigPath); err == nil {
		loaded, loadErr := config.LoadServerConfigFromFile(*serverConfigPath)
		if loadErr != nil {
			log.Fatal("could not load server config", map[string]any{"path": *serverConfigPath, "error": loadErr.Error()})
		}
		serverCfg = loaded
	}
	if err := serverCfg.Validate(); err != nil {
		log.Fatal("invalid server config", map[string]any{"error": err.Error()})
	}

	level, levelErr := logging.ParseLevel(serverCfg.Global.LogLevel)
	if levelErr != nil {
		log.Fatal("invalid log level", map[string]any{"error": levelErr.Error()})
	}
	log.SetLevel(level)

	log.Info("initializing file system", map[string]any{"container": *containerPath, "config": *containerConfigPath})

	containerCfg, err := config.LoadContainerConfig(*containerConfigPath)
	if err != nil {
		log.Fatal("could not load container config", map[string]any{"error": err.Error()})
	}
	if err := config.Validate(containerCfg); err != nil {
		log.Fatal("invalid container config", map[string]any{"error": err.Error()})
	}

	eng, err := openOrFormat(log, *containerPath, containerCfg, serverCfg.Retry)
	if err != nil {
		log.Fatal("could not initialize file system", map[string]any{"error": err.Error()})
	}

	metricsCollector := metrics.NewCollector()

	healthTracker := health.NewTracker(health.DefaultConfig())
	healthTracker.Register("container")

	statusTracker := status.NewTracker(status.Config{HealthTracker: healthTracker})

	var breaker *circuit.Breaker
	if serverCfg.Circuit.Enabled {
		breaker = circuit.New("container", serverCfg.Circuit.FailureThreshold, serverCfg.Circuit.ResetTimeout)
	}

	srv := server.New(eng, log.WithComponent("server"), metricsCollector, healthTracker, statusTracker, breaker)

	if _, err := server.StartAmbient(
		log.WithComponent("ambient"),
		serverCfg.Global.MetricsAddr, metricsCollector.Handler(),
		serverCfg.Global.HealthAddr, healthTracker.Handler(),
		serverCfg.Global.StatusAddr, statusTracker.Handler(),
	); err != nil {
		log.Fatal("could not start ambient listeners", map[string]any{"error": err.Error()})
	}

	addr := net.JoinHostPort("", strconv.Itoa(containerCfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("could not bind wire protocol listener", map[string]any{"addr": addr, "error": err.Error()})
	}
	log.Info("listening", map[string]any{"addr": addr})

	if err := srv.Serve(ln); err != nil {
		log.Fatal("listener stopped", map[string]any{"error": err.Error()})
	}
}

// openOrFormat formats a brand-new container when path does not yet exist,
// otherwise opens the existing one. Opening retries with pkg/retry's bounded
// backoff, since the container file can transiently fail to open on a
// network-mounted filesystem even when it is perfectly valid; formatting
// never retries, since a failure there means the path or config itself is
// bad and trying again changes nothing.
func openOrFormat(log *logging.Logger, path string, cfg container.Config, retryCfg config.RetryConfig) (*engine.Engine, error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		log.Info("container file not found, formatting a new one", map[string]any{"container": path})
		eng, omniErr := engine.Format(path, cfg)
		if omniErr != nil {
			return nil, omniErr
		}
		return eng, nil
	}

	var eng *engine.Engine
	var lastErr *errors.OmniError
	retryErr := retry.New(retry.Config{
		MaxAttempts:  retryCfg.MaxAttempts,
		InitialDelay: retryCfg.BaseDelay,
		MaxDelay:     retryCfg.MaxDelay,
		Multiplier:   2.0,
		Jitter:       true,
	}).Do(context.Background(), func() error {
		var omniErr *errors.OmniError
		eng, omniErr = engine.Init(path, cfg)
		if omniErr != nil {
			lastErr = omniErr
			return omniErr
		}
		return nil
	})
	if retryErr != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, retryErr
	}
	return eng, nil
}
