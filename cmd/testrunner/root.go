package main

import (
	"fmt"
	"strconv"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/remote"
	"lms_backend/internal/session"
	"lms_backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "testrunner",
	Short:         "Take LMS tests from the terminal",
	Long:          "testrunner drives a test session against the LMS API: answers are synced in the background and the countdown is enforced locally.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "Directory containing config.yaml")
	rootCmd.PersistentFlags().String("api", "", "API base URL (overrides remote.base_url / LMS_API_URL)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides remote.token / LMS_API_TOKEN)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log to the console as well as logs/testrunner.log")

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(countdownCmd)
	rootCmd.AddCommand(tokenCmd)
}

// env bundles what every subcommand needs.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	client *remote.HTTPClient
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.Remote.BaseURL = api
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Remote.Token = token
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log := logger.New(cfg, "logs/testrunner.log", verbose)
	logger.Log = log

	timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
	client := remote.NewHTTPClient(cfg.Remote.BaseURL, cfg.Remote.Token,
		remote.WithLogger(log),
		remote.WithTimeout(timeout),
	)
	return &env{cfg: cfg, log: log, client: client}, nil
}

func syncConfig(cfg config.SessionConfig) session.SyncConfig {
	sc := session.DefaultSyncConfig()
	if d := cfg.SyncDebounce(); d > 0 {
		sc.Debounce = d
	}
	if cfg.SyncMaxAttempts > 0 {
		sc.MaxAttempts = cfg.SyncMaxAttempts
	}
	if d := cfg.SyncInitialWait(); d > 0 {
		sc.InitialWait = d
	}
	if d := cfg.SyncMaxWait(); d > 0 {
		sc.MaxWait = d
	}
	if cfg.SyncMultiplier >= 1 {
		sc.Multiplier = cfg.SyncMultiplier
	}
	return sc
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}
