package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amuthap/wedding-automation/internal/greeter"
	"github.com/amuthap/wedding-automation/internal/handlers"
)

// shutdownTimeout bounds how long an interrupted server waits for an
// in-flight run to answer.
const shutdownTimeout = 2 * time.Minute

// serve: HTTP trigger for runs and previews.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve manual runs and previews over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			svc, err := greeter.NewService(cfg)
			if err != nil {
				return err
			}
			if err := svc.Composer().EnsureOutputDir(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := serve(ctx, cfg.Server.Addr(), NewRouter(svc, cfg.Server.Token)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "serve completed")
			return nil
		},
	}
}

// NewRouter mounts the greeting routes behind the standard middleware.
func NewRouter(svc *greeter.Service, token string) *gin.Engine {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(handlers.RequestLogger())

	handlers.NewGreetingsHandler(svc, svc.Composer(), token).Register(router)
	return router
}

// serve listens on addr until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logrus.WithField("addr", addr).Info("Starting server")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
