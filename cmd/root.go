package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/helper-matcher/internal/explain/gemini"
	"github.com/spigell/helper-matcher/internal/matching"
	"github.com/spigell/helper-matcher/internal/storage/graph"
	"github.com/spigell/helper-matcher/internal/storage/postgres"
)

const (
	app       = "helper-matcher"
	envPrefix = "HM"
)

type Config struct {
	Storage  StorageConfig   `mapstructure:"storage"`
	Postgres postgres.Config `mapstructure:"postgres"`
	Neo4j    graph.Options   `mapstructure:"neo4j"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Matching matching.Config `mapstructure:",squash"`
	AI       *AIConfig       `mapstructure:"ai"`
}

// StorageConfig picks a backend for profiles (candidates and jobs) and for
// history (decisions and models).
type StorageConfig struct {
	// Profiles is one of memory, postgres or graph.
	Profiles string `mapstructure:"profiles"`
	// History is one of memory or postgres.
	History  string `mapstructure:"history"`
	Fixtures string `mapstructure:"fixtures"`
	// EnsureSchema creates the postgres tables on start.
	EnsureSchema bool `mapstructure:"ensure-schema"`
}

// RedisConfig enables the shared ranking cache and training locks. Without a
// URL both stay in process.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
	Prefix  string `mapstructure:"prefix"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Tone     string        `mapstructure:"tone"`
	Gemini   gemini.Config `mapstructure:"gemini"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "helper-matcher ranks domestic helpers for employer jobs and learns from employer decisions",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees keys viper already knows about.
	for _, key := range []string{
		"storage.profiles", "storage.history", "storage.fixtures",
		"postgres.dsn", "postgres.dsn-file",
		"neo4j.uri", "neo4j.username", "neo4j.password", "neo4j.password-file",
		"redis.url", "redis.url-file",
		"ai.gemini.api-key", "ai.gemini.api-key-file",
	} {
		if err := viper.BindEnv(key); err != nil {
			log.Fatalf("binding %s environment variable: %v", key, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is helper-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
	case cfgFile == "" && errors.As(err, &notFound):
		// Everything has a default, so the file is optional unless named.
	default:
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Storage:  StorageConfig{Profiles: "memory", History: "memory"},
		Redis:    RedisConfig{Prefix: app + ":"},
		Matching: matching.DefaultConfig,
		AI:       &AIConfig{Provider: "gemini"},
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	return config, nil
}
