// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/evidence-engine/internal/ai"
	"github.com/pdiddy/evidence-engine/internal/review"
	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/internal/store"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	defaultDataDir           = "data"
	defaultModel             = "claude-sonnet-4-5-20250929"
	defaultRequestsPerMinute = 30
	defaultUserAgent         = "evidence-engine/0.1"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the audit logger shared by all subcommands.
var logger *zap.Logger

// verbose lowers the audit log level to debug.
var verbose bool

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the evidence-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "evidence-engine",
	Short: "Evidence extraction and synthesis for scientific papers",
	Long: `evidence-engine maintains a local evidence base of scientific papers and
research questions. A model held to conservative language extracts what
each paper contributes to a question; the engine groups the findings,
flags contradictions, and synthesizes a cited, confidence-scored answer.

Papers, questions, findings, and syntheses live in a local SQLite
database. Each operation is a subcommand: paper, question, review, tag,
and export.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidence-engine.yaml or ~/.config/evidence-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for persistent data (default: data)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-engine"))
		}
	}

	viper.SetEnvPrefix("EVIDENCE_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// storeConfig resolves store settings from flags, the config file, and
// defaults, in that order.
func storeConfig() types.StoreConfig {
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	return types.StoreConfig{
		DataDir:    dataDir,
		MaxResults: viper.GetInt("store.max_results"),
	}
}

func openStore() (*store.Store, error) {
	return store.NewStore(storeConfig())
}

// reviewConfig resolves model settings for commands that call the AI API.
// The API key comes from .secrets/anthropic-api-key, the config file, or
// the ANTHROPIC_API_KEY environment variable; without one, model stages
// degrade to their deterministic fallbacks.
func reviewConfig(cmd *cobra.Command) types.ReviewConfig {
	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("review.model")
	}
	if model == "" {
		model = defaultModel
	}

	apiKey := secretDefault("anthropic-api-key", viper.GetString("review.api_key"))
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	userAgent := viper.GetString("http.user_agent")
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	cfg := types.ReviewConfig{
		AIConfig: types.AIConfig{
			Model:  model,
			APIKey: apiKey,
		},
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: userAgent,
		},
		Concurrency:       viper.GetInt("review.concurrency"),
		RequestsPerMinute: viper.GetInt("review.requests_per_minute"),
		TagLimit:          viper.GetInt("review.tag_limit"),
		MaxChunkChars:     viper.GetInt("review.max_chunk_chars"),
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	return cfg
}

// newEvaluator opens the store and wires the review pipeline around it.
// The caller owns closing the returned store.
func newEvaluator(cfg types.ReviewConfig) (*review.Evaluator, *store.Store, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	client := ai.NewClient(cfg.AIConfig, cfg.HTTPConfig, cfg.RequestsPerMinute)
	return review.NewEvaluator(st, client, cfg, logger), st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
