package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/safescan/internal/api"
	"github.com/sells-group/safescan/internal/config"
)

const shutdownTimeout = 15 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring and deep research HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		return runServer(ctx, newHTTPServer(env, cfg, port))
	},
}

func newHTTPServer(env *appEnv, c *config.Config, port int) *http.Server {
	srv := api.New(api.Deps{
		Scorer:         env.Engine,
		Jobs:           env.Orchestrator,
		Catalog:        env.Catalog,
		Store:          env.Store,
		StatusPath:     c.Research.StatusPath,
		AllowedOrigins: c.Server.AllowedOrigins,
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(c.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout:      time.Duration(c.Server.WriteTimeoutSecs) * time.Second,
	}
}

// runServer serves until ctx is done or the listener fails, then shuts down
// gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
