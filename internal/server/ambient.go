package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/omnifs/omnifs/internal/logging"
)

// ambientServer is one of the three independent diagnostic listeners
// (metrics, health, status) the original never had and this server adds
// since they each have a distinct scrape contract and are commonly firewalled
// off from each other in production.
type ambientServer struct {
	name   string
	addr   string
	server *http.Server
}

// StartAmbient launches the metrics/health/status HTTP listeners in their
// own goroutines. A listener with an empty addr is skipped. Errors after
// startup (not bind failures, which are returned immediately) are logged and
// do not bring down the OmniFS TCP listener.
func StartAmbient(log *logging.Logger, metricsAddr string, metricsHandler http.Handler, healthAddr string, healthHandler http.Handler, statusAddr string, statusHandler http.Handler) ([]*ambientServer, error) {
	specs := []struct {
		name    string
		addr    string
		handler http.Handler
	}{
		{"metrics", metricsAddr, metricsHandler},
		{"health", healthAddr, healthHandler},
		{"status", statusAddr, statusHandler},
	}

	var started []*ambientServer
	for _, spec := range specs {
		if spec.addr == "" {
			continue
		}
		mux := http.NewServeMux()
		mux.Handle("/", spec.handler)
		srv := &http.Server{Addr: spec.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		ln, err := net.Listen("tcp", spec.addr)
		if err != nil {
			for _, s := range started {
				_ = s.server.Close()
			}
			return nil, err
		}

		as := &ambientServer{name: spec.name, addr: spec.addr, server: srv}
		started = append(started, as)

		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Error("ambient listener stopped", map[string]any{"listener": as.name, "addr": as.addr, "error": err.Error()})
			}
		}()
		log.Info("ambient listener started", map[string]any{"listener": as.name, "addr": as.addr})
	}

	return started, nil
}

// ShutdownAmbient gracefully stops every ambient listener.
func ShutdownAmbient(ctx context.Context, servers []*ambientServer) {
	for _, s := range servers {
		_ = s.server.Shutdown(ctx)
	}
}
