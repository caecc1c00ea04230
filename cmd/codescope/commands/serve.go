package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codescope-io/codescope/internal/api"
)

func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan API server",
		Long:  "Start the HTTP API server exposing scan lifecycle operations, the check catalog and the service registry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(version)
		},
	}

	cmd.Flags().String("host", "0.0.0.0", "listen address")
	cmd.Flags().IntP("port", "p", 8085, "listen port")
	cmd.Flags().String("storage", "", "storage driver (memory, postgres)")
	cmd.Flags().String("dsn", "", "postgres connection string")
	cmd.Flags().Bool("metrics", true, "expose prometheus metrics on /metrics")

	_ = viper.BindPFlag("api.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("api.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("storage.driver", cmd.Flags().Lookup("storage"))
	_ = viper.BindPFlag("storage.dsn", cmd.Flags().Lookup("dsn"))
	_ = viper.BindPFlag("api.enable_metrics", cmd.Flags().Lookup("metrics"))

	return cmd
}

func runServe(version string) error {
	p, err := buildPlatform(version)
	if err != nil {
		return err
	}
	defer p.close()

	if v := viper.GetString("api.host"); v != "" {
		p.cfg.API.Host = v
	}
	if v := viper.GetInt("api.port"); v != 0 {
		p.cfg.API.Port = v
	}

	server := api.NewServer(p.cfg.API, p.engine, p.catalog, p.registry, p.metrics, p.logger, version)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		p.logger.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		p.logger.WithError(err).Warn("API shutdown incomplete")
	}
	if err := p.engine.Shutdown(ctx); err != nil {
		p.logger.WithError(err).Warn("Engine shutdown incomplete")
	}
	return nil
}
