package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/meshrelay/pkg/api"
	"github.com/cuemby/meshrelay/pkg/config"
	"github.com/cuemby/meshrelay/pkg/listener"
	"github.com/cuemby/meshrelay/pkg/log"
	"github.com/cuemby/meshrelay/pkg/metrics"
	"github.com/cuemby/meshrelay/pkg/render"
	"github.com/cuemby/meshrelay/pkg/router"
	"github.com/cuemby/meshrelay/pkg/storage"
	"github.com/cuemby/meshrelay/pkg/telegram"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "meshrelay",
	Short: "MeshCom UDP relay with storage and Telegram forwarding",
	Long: `meshrelay receives MeshCom JSON datagrams over UDP, stores selected
message types and forwards matching messages to a Telegram chat.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"meshrelay version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file (.yaml, .json, .jsonc or .toml)")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the relay until interrupted",
	Long: `Run the UDP listener with the configured store, forwarding rules and
admin server. A missing configuration file is created with defaults.

Stop with Ctrl+C or SIGTERM.`,
	RunE: runRelay,
}

func init() {
	runCmd.Flags().String("host", "", "Override listener.host")
	runCmd.Flags().Int("port", 0, "Override listener.port")
}

// loadConfig loads the configuration and initializes logging from it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Lookup("host") != nil && cmd.Flags().Changed("host") {
		cfg.Listener.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Lookup("port") != nil && cmd.Flags().Changed("port") {
		cfg.Listener.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := log.Init(cfg.LogConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	logger := log.WithComponent("config")
	for _, w := range cfg.Warnings {
		logger.Warn().Msg(w)
	}
	return cfg, nil
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer log.Close()

	logger := log.WithComponent("main")
	logger.Info().
		Str("version", Version).
		Str("config", configPath).
		Msg("Configuration and logging initialized")
	metrics.SetVersion(Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StorageConfig())
	if err != nil {
		metrics.RegisterComponent(metrics.ComponentStore, false, err.Error())
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()
	metrics.RegisterComponent(metrics.ComponentStore, true, "")
	logger.Info().
		Str("backend", cfg.Database.Backend).
		Str("table", cfg.Database.TableName).
		Strs("store_types", cfg.StoreTypeSet().List()).
		Msg("Message store ready")

	templates, err := cfg.Templates()
	if err != nil {
		return err
	}
	for name, terr := range templates.Errors() {
		logger.Warn().Err(terr).Str("template", name).Msg("Template will use the error fallback")
	}

	pipelineCfg := listener.PipelineConfig{
		Store:      store,
		StoreTypes: cfg.StoreTypeSet(),
		Router:     router.NewRouter(cfg.ForwardingRules()),
		Renderer:   render.NewRenderer(templates),
	}
	if cfg.Forwarding.Enabled {
		client, err := telegram.New(ctx, cfg.TelegramConfig())
		if err != nil {
			return fmt.Errorf("failed to create telegram client: %w", err)
		}
		pipelineCfg.Sender = client
		logger.Info().Int("rules", len(cfg.Forwarding.Rules)).Msg("Forwarding enabled")
	} else {
		logger.Info().Msg("Forwarding disabled")
	}

	pipeline, err := listener.NewPipeline(pipelineCfg)
	if err != nil {
		return err
	}

	l := listener.New(listener.Config{
		Addr:       cfg.ListenAddr(),
		BufferSize: cfg.Listener.BufferSize,
	}, pipeline)
	if err := l.Listen(); err != nil {
		return err
	}

	collector := metrics.NewCollector(store, metrics.DefaultCollectInterval)
	collector.Start()
	defer collector.Stop()

	if cfg.Admin.Addr != "" {
		apiServer := api.NewServer(store)
		go func() {
			if err := apiServer.Start(cfg.Admin.Addr); err != nil {
				logger.Error().Err(err).Msg("Admin server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Admin server shutdown failed")
			}
		}()
		logger.Info().Str("address", cfg.Admin.Addr).Msg("Admin server started")
	}

	if err := l.Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}
