package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the quantkit configuration file
// (~/.config/quantkit/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`

	// Benchmark defaults
	BenchWarmup *int64 `yaml:"bench_warmup"`
	BenchRuns   *int64 `yaml:"bench_runs"`

	// Verification
	SuitePath string `yaml:"suite_path"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "quantkit", "config.yaml")
}

// applyCommonConfig applies logging defaults when the corresponding CLI
// flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyCommonConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// applyBenchConfig applies config file defaults to benchmark variables.
func applyBenchConfig(c *cli.Command, cfg Config, warmup, runs *int64) {
	applyCommonConfig(c, cfg)
	if cfg.BenchWarmup != nil && !c.IsSet("warmup") {
		*warmup = *cfg.BenchWarmup
	}
	if cfg.BenchRuns != nil && !c.IsSet("runs") {
		*runs = *cfg.BenchRuns
	}
}

// applyVerifyConfig applies config file defaults to verify command variables.
func applyVerifyConfig(c *cli.Command, cfg Config, suitePath *string) {
	applyCommonConfig(c, cfg)
	if cfg.SuitePath != "" && !c.IsSet("suite") {
		*suitePath = cfg.SuitePath
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
