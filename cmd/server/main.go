package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/coach"
	"github.com/franckalain/wellness/internal/config"
	"github.com/franckalain/wellness/internal/database"
	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/logging"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/roadmap"
	"github.com/franckalain/wellness/internal/server"
	"github.com/franckalain/wellness/internal/tracker"
	"github.com/franckalain/wellness/internal/voice"
	"github.com/franckalain/wellness/internal/walks"
)

var (
	version    = "0.1.0"
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wellness",
		Short: "AI wellness coach backend",
		RunE:  runServer,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetConfigPath(), "path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE:  runServer,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wellness version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Server.LogLevel, cfg.Server.Debug || verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSQLiteDB(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	model, err := ml.NewModel(ml.Config{
		Type:            cfg.ML.Type,
		APIKey:          cfg.ML.APIKey,
		ProjectID:       cfg.ML.ProjectID,
		Location:        cfg.ML.Location,
		CredentialsFile: cfg.ML.CredentialsFile,
		OllamaHost:      cfg.ML.OllamaHost,
		Models: ml.ModelNames{
			Fast:    cfg.ML.Models.Fast,
			Quality: cfg.ML.Models.Quality,
			Vision:  cfg.ML.Models.Vision,
			Live:    cfg.ML.Models.Live,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create ML model: %w", err)
	}
	if err := model.Load(ctx); err != nil {
		return fmt.Errorf("failed to load ML model: %w", err)
	}
	defer model.Close()

	locales, err := loadLocales(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.Locale.File != "" && cfg.Locale.Watch {
		watcher, err := locale.Watch(locales, cfg.Locale.File, logger.Named("locale"))
		if err != nil {
			return fmt.Errorf("failed to watch locale file: %w", err)
		}
		defer watcher.Close()
	}

	timeout := cfg.ML.Timeout
	roadmaps := roadmap.NewSynchronizer(db, model, locales, timeout, logger)
	chat := coach.NewChatService(db, model, coach.NewLocaleClassifier(locales), locales, roadmaps, coach.Options{
		FastModel:    cfg.ML.Models.Fast,
		QualityModel: cfg.ML.Models.Quality,
		Timeout:      timeout,
	}, logger)
	defer chat.Close()

	walkEngine, err := walks.NewEngine(model, locales, walks.Options{
		Model:     cfg.ML.Models.Fast,
		Timeout:   timeout,
		CacheSize: cfg.Walks.AddressCacheSize,
	}, logger)
	if err != nil {
		return err
	}

	live, _ := model.(ml.LiveConnector)
	if live == nil {
		logger.Info("voice sessions disabled", zap.String("backend", cfg.ML.Type))
	}

	srv, err := server.New(server.Services{
		DB:       db,
		Chat:     chat,
		Roadmaps: roadmaps,
		Walks:    walkEngine,
		Tracker:  tracker.New(db, model, locales, timeout, logger),
		Voice:    voice.NewController(live, logger),
		Locales:  locales,
	}, server.Options{
		Port:            cfg.Server.Port,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

// loadLocales starts from the built-in pack for the configured language and
// overlays the locale file when one is set.
func loadLocales(cfg *config.Config, logger *zap.Logger) (*locale.Store, error) {
	pack := locale.Lookup(cfg.Locale.Language)
	if cfg.Locale.File != "" {
		p, err := locale.LoadFile(cfg.Locale.File)
		if err != nil {
			return nil, err
		}
		pack = p
	}
	logger.Info("locale loaded", zap.String("code", pack.Code))
	return locale.NewStore(pack), nil
}
