package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghyeongl/importhistory/history"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host change callbacks and the history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := openSession(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer s.Close()
			return serve(ctx, s)
		},
	}
	cmd.Flags().String("listen-addr", "", "HTTP listen address")
	return cmd
}

func serve(ctx context.Context, s *session) error {
	l := history.Logger("serve")

	if s.cfg.ExtensionsFile != "" {
		w, err := history.NewExtensionWatcher(s.cfg.ExtensionsFile, s.svc.SetIgnoredExtensions)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() {
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				l.Warn("extensions watcher stopped", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           history.NewHandlers(s.svc).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("listening", "addr", s.cfg.ListenAddr, "backend", s.cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
