package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/graphcore/pkg/health"
	"github.com/cuemby/graphcore/pkg/log"
	"github.com/cuemby/graphcore/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run storaged as a long-lived node, serving metrics and health checks",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", ":9190", "Address for the /metrics, /healthz and /readyz endpoints")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Events.Stop()

	bindAddr, _ := cmd.Flags().GetString("bind-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	nodeID, _ := cmd.Flags().GetString("node-id")

	logger := log.WithNodeID(nodeID)

	collector := metrics.NewCollector(rt.Store, rt.Catalog, rt.Catalog.SpaceIDs())
	collector.Start()
	defer collector.Stop()

	readiness := health.NewTCPChecker(bindAddr).WithTimeout(2 * time.Second)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := readiness.Check(r.Context())
		status := http.StatusOK
		if !result.Healthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(result)
	})

	srv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		logger.Info().Str("addr", metricsAddr).Msg("serving metrics and health endpoints")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
