package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/sieve/internal/cli"
	"github.com/aretw0/sieve/internal/config"
	"github.com/spf13/cobra"
)

// exitError carries a process exit code without printing anything more.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

var rootCmd = &cobra.Command{
	Use:   "sieve",
	Short: "Sieve casts and validates records against declarative schemas",
	Long: `Sieve coerces raw input into typed records, checks required fields and
evaluates rule clauses, collecting every problem instead of stopping at the first.
Schemas are YAML or JSON documents read from a directory or from Redis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if e, ok := err.(exitError); ok {
			os.Exit(e.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "schemas", "Directory containing schema documents (env SIEVE_DIR)")
	rootCmd.PersistentFlags().String("redis-addr", "", "Read schemas from Redis at this address instead of --dir (env SIEVE_REDIS_ADDR)")
	rootCmd.PersistentFlags().String("redis-prefix", "sieve:schema:", "Key prefix of schemas in Redis (env SIEVE_REDIS_PREFIX)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error (env SIEVE_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and validation tracing")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "Load environment variables from these files")
	rootCmd.PersistentFlags().StringSlice("redact", nil, "Mask values of fields matching these patterns in output (env SIEVE_REDACT)")
}

// loadConfig merges the environment with flags; flags set on the command
// line win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir, _ = flags.GetString("dir")
	}
	if flags.Changed("redis-addr") {
		cfg.RedisAddr, _ = flags.GetString("redis-addr")
	}
	if flags.Changed("redis-prefix") {
		cfg.RedisPrefix, _ = flags.GetString("redis-prefix")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("redact") {
		cfg.Redact, _ = flags.GetStringSlice("redact")
	}
	if f := flags.Lookup("port"); f != nil && f.Changed {
		cfg.Port, _ = flags.GetInt("port")
	}
	if f := flags.Lookup("metrics"); f != nil && f.Changed {
		cfg.Metrics, _ = flags.GetBool("metrics")
	}
	if f := flags.Lookup("watch"); f != nil && f.Changed {
		cfg.Watch, _ = flags.GetBool("watch")
	}
	return cfg, nil
}

// setupEngine loads configuration and builds the engine and logger for a
// command.
func setupEngine(cmd *cobra.Command) (*cli.Setup, *config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	logger, err := cli.CreateLogger(cfg.LogLevel, debug)
	if err != nil {
		return nil, nil, nil, err
	}

	setup, err := cli.NewEngine(cli.Options{
		Dir:         cfg.Dir,
		RedisAddr:   cfg.RedisAddr,
		RedisPrefix: cfg.RedisPrefix,
		Debug:       debug,
		Metrics:     cfg.Metrics,
		Redact:      cfg.Redact,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return setup, cfg, logger, nil
}
