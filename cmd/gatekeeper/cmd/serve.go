package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/gatekeeper/internal/conditions"
	"github.com/solatis/gatekeeper/internal/core/api"
	"github.com/solatis/gatekeeper/internal/core/auth"
	"github.com/solatis/gatekeeper/internal/core/config"
	"github.com/solatis/gatekeeper/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load conditions and start the gRPC admin service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "admin server host")
	serveCmd.Flags().Int("port", 0, "admin server port")
	serveCmd.Flags().Duration("reload-interval", 0, "period between reloads (0 keeps the configured value)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Admin.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Admin.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("reload-interval") {
		cfg.Engine.ReloadInterval, _ = cmd.Flags().GetDuration("reload-interval")
	}

	database, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	engine := conditions.NewEngine(conditions.WithLogger(logger.Named("conditions")))
	service, err := api.NewConditionService(store, engine, logger.Named("api"))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	var authenticator *auth.Authenticator
	if token := config.AdminToken(); token != "" {
		if authenticator, err = auth.NewAuthenticator(token); err != nil {
			return fmt.Errorf("GK_ADMIN_TOKEN: %w", err)
		}
	} else {
		logger.Warn("GK_ADMIN_TOKEN not set, admin service is unauthenticated")
	}

	grpcServer, err := server.NewGRPCServer(cfg.Admin, service, authenticator, logger.Named("server"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// A failed first load leaves health NOT_SERVING; the ticker or an
	// admin Reload call can still bring the service up.
	if _, err := service.Reload(ctx); err != nil {
		logger.Warn("initial condition load failed", zap.Error(err))
	}

	logger.Info("starting gatekeeper",
		zap.String("version", Version),
		zap.String("addr", cfg.Admin.Addr()),
		zap.Duration("reload_interval", cfg.Engine.ReloadInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Start(ctx)
	})
	g.Go(func() error {
		reloadLoop(ctx, service, cfg.Engine.ReloadInterval)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reloadLoop reloads every interval until ctx is done. Zero disables it.
func reloadLoop(ctx context.Context, service *api.ConditionService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures are logged by the service and keep the current snapshot.
			service.Reload(ctx)
		}
	}
}
