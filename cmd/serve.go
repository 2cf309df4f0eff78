package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ca-srg/hellobot/internal/config"
	"github.com/ca-srg/hellobot/internal/slackbot"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Slack Events API request URL over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx, config.ModeHTTP)
		if err != nil {
			return err
		}
		defer a.shutdown()

		receiver, err := a.receiver()
		if err != nil {
			return err
		}

		addr := a.cfg.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		mux := http.NewServeMux()
		mux.Handle(a.cfg.HTTPPath, slackbot.NewHTTPHandler(receiver, a.cfg.ResponseTimeout, a.logger))
		mux.Handle("/healthz", slackbot.HealthHandler())

		server := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.logger.Printf("Starting HTTP server on %s (path=%s)...", addr, a.cfg.HTTPPath)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.logger.Println("received shutdown signal")
			return server.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides HTTP_ADDR)")
}
