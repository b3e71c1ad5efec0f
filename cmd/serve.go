package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/territory-cli/internal/api"
	"github.com/sells-group/territory-cli/internal/metrics"
	"github.com/sells-group/territory-cli/internal/territory"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resolution and admin HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.PoolStat != nil {
			if err := metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, env.PoolStat); err != nil {
				return eris.Wrap(err, "register pool metrics")
			}
		}

		unsubscribe := env.Service.Subscribe(logChange)
		defer unsubscribe()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		handler := api.NewServer(env.Service,
			api.WithPinger(env.Pinger),
			api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
		).Handler()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server",
				zap.Int("port", port),
				zap.String("store", cfg.Store.Driver),
				zap.String("fallback_installer", env.Service.FallbackInstaller()),
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// logChange records every assignment change in the server log.
func logChange(ev territory.ChangeEvent) {
	keys := make([]string, len(ev.Keys))
	for i, k := range ev.Keys {
		keys[i] = k.String()
	}
	zap.L().Info("assignments changed",
		zap.String("event_id", ev.ID.String()),
		zap.String("op", ev.Op),
		zap.Int("count", len(keys)),
		zap.Strings("keys", keys),
	)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
