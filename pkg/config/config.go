package config

// Package config provides a reusable loader for the ledger daemon's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"omrledger/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for the ledger daemon. It mirrors the
// structure of the YAML files under cmd/omrledgerd/config.
type Config struct {
	Ledger struct {
		Difficulty       int    `mapstructure:"difficulty" json:"difficulty"`
		MiningMaxAttempt uint64 `mapstructure:"mining_max_attempt" json:"mining_max_attempt"`
		LockStripes      int    `mapstructure:"lock_stripes" json:"lock_stripes"`
	} `mapstructure:"ledger" json:"ledger"`

	Database struct {
		DSN          string `mapstructure:"dsn" json:"dsn"`
		MaxOpenConns int    `mapstructure:"max_open_conns" json:"max_open_conns"`
		InMemory     bool   `mapstructure:"in_memory" json:"in_memory"`
	} `mapstructure:"database" json:"database"`

	ObjectStore struct {
		Backend string `mapstructure:"backend" json:"backend"` // "fs" or "s3"
		BaseDir string `mapstructure:"base_dir" json:"base_dir"`
		Bucket  string `mapstructure:"bucket" json:"bucket"`
	} `mapstructure:"object_store" json:"object_store"`

	Signers struct {
		AIVerifierKey      string `mapstructure:"ai_verifier_key" json:"ai_verifier_key"`
		HumanVerifierKey   string `mapstructure:"human_verifier_key" json:"human_verifier_key"`
		AdminControllerKey string `mapstructure:"admin_controller_key" json:"admin_controller_key"`
	} `mapstructure:"signers" json:"signers"`

	AI struct {
		Endpoint   string `mapstructure:"endpoint" json:"endpoint"`
		APIKey     string `mapstructure:"api_key" json:"api_key"`
		MaxRetries int    `mapstructure:"max_retries" json:"max_retries"`
	} `mapstructure:"ai" json:"ai"`

	HTTP struct {
		Addr             string `mapstructure:"addr" json:"addr"`
		ResultVerifyBase string `mapstructure:"result_verify_base" json:"result_verify_base"`
	} `mapstructure:"http" json:"http"`

	Audit struct {
		LogDir string `mapstructure:"log_dir" json:"log_dir"`
	} `mapstructure:"audit" json:"audit"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/omrledgerd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up process environment variables; no .env file is read here

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the OMRLEDGER_ENV environment
// variable to select the overlay file (e.g. "production", "staging").
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("OMRLEDGER_ENV", ""))
}
