package main

import (
	"fmt"
	"strings"

	"github.com/cuemby/meshrelay/pkg/config"
	"github.com/cuemby/meshrelay/pkg/telegram"
	"github.com/spf13/cobra"
)

// Config commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long: `Write the built-in defaults to the file given by --config.

The format follows the extension:
  meshrelay config init -c config.yaml
  meshrelay config init -c config.jsonc
  meshrelay config init -c config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteDefault(configPath, force); err != nil {
			return err
		}
		fmt.Printf("✓ Default configuration written to %s\n", configPath)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		printConfigSummary(cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	rootCmd.AddCommand(configCmd)
}

func printConfigSummary(cfg *config.Config) {
	fmt.Printf("✓ Configuration %s is valid\n\n", configPath)

	fmt.Println("Database:")
	fmt.Printf("  Backend: %s\n", cfg.Database.Backend)
	if cfg.Database.DSN != "" {
		fmt.Printf("  DSN: %s\n", maskSecret(cfg.Database.DSN))
	} else {
		fmt.Printf("  File: %s\n", cfg.Database.DBFile)
	}
	fmt.Printf("  Table: %s\n", cfg.Database.TableName)

	fmt.Println("Listener:")
	fmt.Printf("  Address: %s\n", cfg.ListenAddr())
	fmt.Printf("  Buffer size: %d\n", cfg.Listener.BufferSize)
	fmt.Printf("  Stored types: %s\n", strings.Join(cfg.StoreTypeSet().List(), ", "))

	fmt.Println("Logging:")
	fmt.Printf("  Console level: %s\n", cfg.Logging.Console.Level)
	if cfg.Logging.File.Path != "" {
		fmt.Printf("  File: %s (%s, rolling %s, keep %d)\n",
			cfg.Logging.File.Path, cfg.Logging.File.Level,
			cfg.Logging.File.RollingInterval, cfg.Logging.File.RetainedFileCountLimit)
	}

	fmt.Println("Forwarding:")
	fmt.Printf("  Enabled: %t\n", cfg.Forwarding.Enabled)
	fmt.Printf("  Provider: %s\n", cfg.Forwarding.Provider)
	fmt.Printf("  Bot token: %s\n", maskSecret(cfg.Forwarding.Telegram.BotToken))
	fmt.Printf("  Chat ID: %s\n", cfg.Forwarding.Telegram.ChatID)
	rules := cfg.ForwardingRules()
	if len(rules) == 0 {
		fmt.Println("  Rules: none")
	}
	for i, rule := range rules {
		fmt.Printf("  Rule %d: %s\n", i+1, rule)
	}
	if set, err := cfg.Templates(); err == nil {
		fmt.Printf("  Templates: %s\n", strings.Join(set.Names(), ", "))
	}

	if cfg.Admin.Addr != "" {
		fmt.Println("Admin:")
		fmt.Printf("  Address: %s\n", cfg.Admin.Addr)
	}

	if len(cfg.Warnings) > 0 {
		fmt.Println()
		for _, w := range cfg.Warnings {
			fmt.Printf("⚠ %s\n", w)
		}
	}
}

// maskSecret keeps the first and last characters of long secrets
func maskSecret(s string) string {
	if s == "" || s == telegram.Placeholder {
		return s
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
