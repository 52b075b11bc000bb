package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/autodash/internal/server"
	"github.com/KaramelBytes/autodash/internal/table"
	"github.com/KaramelBytes/autodash/internal/views"
	"github.com/spf13/cobra"
)

var (
	serveBind string
	servePort int
)

// serverConfig maps the loaded configuration and flags onto server.Config.
func serverConfig(cmd *cobra.Command) (server.Config, error) {
	c := currentConfig()
	bind, port := c.ServerBind, c.ServerPort
	if cmd.Flags().Changed("bind") {
		bind = serveBind
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}
	if port <= 0 || port > 65535 {
		return server.Config{}, fmt.Errorf("invalid port: %d", port)
	}
	g, err := views.ParseGranularity(c.DefaultGranularity)
	if err != nil {
		return server.Config{}, fmt.Errorf("config default_granularity: %w", err)
	}
	opt := table.DefaultReadOptions()
	opt.MaxRows = c.MaxRows
	if c.Delimiter != "" {
		r, err := parseDelimiter(c.Delimiter)
		if err != nil {
			return server.Config{}, err
		}
		opt.Delimiter = r
	}
	return server.Config{
		Addr:               fmt.Sprintf("%s:%d", bind, port),
		MaxUploadBytes:     int64(c.MaxUploadMB) << 20,
		MaxSessions:        c.MaxSessions,
		CORSOrigins:        c.CORSOrigins,
		ReadOptions:        opt,
		DefaultGranularity: g,
	}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := serverConfig(cmd)
		if err != nil {
			return err
		}
		srv := server.New(sc, log)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			log.Info("received signal, shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown server", "error", err)
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveBind, "bind", "127.0.0.1", "address to listen on (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (default from config)")
}
