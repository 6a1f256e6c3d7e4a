package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dataada/go-sdk/pkg/client"
	"github.com/dataada/go-sdk/pkg/server"
)

var (
	serveAddr   string
	serveNoAuth bool
)

// serveCmd runs the development server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development chat server",
	Long: `Serves the chat stream protocol from the built-in simulator, plus the
/projects routes backed by the local SQLite database.

Example:
  dataada serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoAuth, "no-auth", false, "Serve /projects without bearer tokens")
}

func runServe(cmd *cobra.Command, args []string) error {
	db, err := openBackend()
	if err != nil {
		return err
	}
	defer db.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	sc := server.Config{
		Address:  addr,
		Streamer: client.NewMockStreamer(client.DefaultMockConfig()),
		Projects: db,
		Sessions: db,
		Logger:   logger,
	}
	if serveNoAuth {
		sc.Sessions = nil
	}

	s, err := server.New(sc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
