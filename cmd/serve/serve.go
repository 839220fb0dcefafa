// Package serve runs the HTTP API.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fjacquet/finchat/cmd/root"
	"fjacquet/finchat/internal/logging"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the graceful shutdown.
const shutdownTimeout = 10 * time.Second

var addr string

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	Long: `Serve the chat API over HTTP. Pending flows saved by a previous run are
restored before the server starts accepting messages.`,
	RunE: serveFunc,
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")
}

func serveFunc(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := root.NewContainer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	logger := c.GetLogger()
	if _, err := c.GetBridge().RestoreAll(ctx); err != nil {
		return err
	}

	cfg := c.GetConfig()
	listen := cfg.Server.Addr
	if addr != "" {
		listen = addr
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      c.GetRouter(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server listening", logging.F("addr", listen))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
