package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greencloud/config"
	"greencloud/database"
	"greencloud/handlers"
	"greencloud/logger"
	"greencloud/metrics"
	"greencloud/middleware"
	"greencloud/repositories"
	"greencloud/services"
	"greencloud/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfgFile       string
	retentionDays int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "greencloud",
		Short:         "GreenCloud storage and lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to the YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired trash for every user with auto cleanup enabled",
		Long: `Runs one trash sweep and exits. Meant to be triggered by an external
scheduler such as cron or a Kubernetes CronJob.`,
		RunE: runSweep,
	}
	sweepCmd.Flags().IntVar(&retentionDays, "retention-days", -1, "override trash.retention_days")

	recalcCmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recompute storage_used for every user from active files",
		RunE:  runRecalc,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(&cfg.Database)
			if err != nil {
				return err
			}
			return database.Migrate(db)
		},
	}

	rootCmd.AddCommand(serveCmd, sweepCmd, recalcCmd, migrateCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgFile, err)
	}
	logger.Setup(cfg.Log)
	return cfg, nil
}

// app is the wired engine shared by every subcommand.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	services *services.Container
	closers  []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if a.db, err = database.Open(&cfg.Database); err != nil {
		return nil, err
	}
	if err := database.Migrate(a.db); err != nil {
		return nil, err
	}

	var locker services.UserLocker
	if cfg.Locking.Backend == config.BackendRedis {
		client := database.InitRedis(&cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.closers = append(a.closers, client)
		locker = services.NewRedisUserLocker(client, time.Duration(cfg.Locking.TTLSeconds)*time.Second)
	}

	backend, err := openBackend(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.services = services.NewContainer(services.Deps{
		Repos:    repositories.NewGormRepositories(a.db).BuildContainer(),
		Storage:  backend,
		Locker:   locker,
		Metrics:  metrics.New(metrics.Registry),
		Settings: services.SettingsFromConfig(cfg),
	})
	return a, nil
}

func openBackend(ctx context.Context, cfg *config.Config, a *app) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		gcs, err := storage.NewGCSBackend(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gcs)
		log.Info().Str("bucket", cfg.Storage.GCS.Bucket).Msg("using gcs storage backend")
		return gcs, nil
	default:
		local, err := storage.NewLocalBackend(cfg.Storage.BasePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("base_path", cfg.Storage.BasePath).Msg("using local storage backend")
		return local, nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	handlers.SetServices(a.services)

	if !logger.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	if a.cfg.Metrics.Enabled {
		r.GET(a.cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	}
	setupRoutes(r, a.cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	retention := a.cfg.Trash.RetentionDays
	if retentionDays >= 0 {
		retention = retentionDays
	}
	report, err := a.services.Cleanup.SweepAll(ctx, retention)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		log.Warn().Err(w).Msg("sweep left bytes behind")
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("sweep failed for %d users: %w", len(report.Failures), errors.Join(report.Failures...))
	}
	return nil
}

func runRecalc(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.services.User.RecalculateAll(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("users", n).Msg("storage usage recalculated")
	return nil
}

func setupRoutes(r *gin.Engine, cfg *config.Config) {
	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)

	// Account provisioning is reached only through the operator network.
	admin := api.Group("/admin")
	{
		admin.POST("/users", handlers.CreateUser)
		admin.DELETE("/users/:id", handlers.DeleteUser)
	}

	protected := api.Group("")
	protected.Use(middleware.UserContext(cfg.Server.UserHeader))
	{
		protected.GET("/user/storage/quota", handlers.GetStorageQuota)
		protected.PUT("/user/settings", handlers.UpdateSettings)
		protected.POST("/user/storage/recalculate", handlers.RecalculateStorage)

		protected.GET("/folders", handlers.ListFolderContents)
		protected.POST("/folders", handlers.CreateFolder)
		protected.PUT("/folders/:id", handlers.RenameFolder)
		protected.GET("/folders/:id/breadcrumbs", handlers.GetBreadcrumbs)
		protected.GET("/folders/:id/count", handlers.GetFolderFileCount)
		protected.DELETE("/folders/:id", handlers.DeleteFolder)
		protected.POST("/folders/:id/restore", handlers.RestoreFolder)
		protected.DELETE("/folders/:id/purge", handlers.PurgeFolder)

		protected.GET("/files", handlers.ListFiles)
		protected.POST("/files/upload", handlers.UploadFile)
		protected.GET("/files/favorites", handlers.ListFavorites)
		protected.GET("/files/search", handlers.SearchFiles)
		protected.GET("/files/recent", handlers.ListRecentFiles)
		protected.GET("/files/:id", handlers.GetFile)
		protected.GET("/files/:id/download", handlers.DownloadFile)
		protected.GET("/files/:id/versions", handlers.ListVersions)
		protected.PUT("/files/:id/rename", handlers.RenameFile)
		protected.PUT("/files/:id/move", handlers.MoveFile)
		protected.POST("/files/:id/favorite", handlers.ToggleFavorite)
		protected.DELETE("/files/:id", handlers.DeleteFile)
		protected.POST("/files/:id/restore", handlers.RestoreFile)
		protected.DELETE("/files/:id/purge", handlers.PurgeFile)

		protected.GET("/recycle-bin", handlers.ListTrash)
		protected.POST("/recycle-bin/empty", handlers.EmptyTrash)
		protected.POST("/recycle-bin/cleanup", handlers.CleanupTrash)

		protected.GET("/greenops/score", handlers.GetGreenScore)
		protected.GET("/greenops/score/breakdown", handlers.GetScoreBreakdown)
		protected.GET("/greenops/suggestions", handlers.GetSuggestions)
		protected.GET("/greenops/duplicates", handlers.GetDuplicates)
		protected.GET("/greenops/stats", handlers.GetStorageStats)
		protected.POST("/greenops/energy", handlers.PostEnergyReport)
	}
}
