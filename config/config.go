// Package config loads taxfolio configuration from a YAML file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen   = ":8080"
	DefaultDataDir  = "./taxfolio-data"
	DefaultLogLevel = "info"
)

// Config holds the server settings.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// DataDir is where the ledger WAL segments live.
	DataDir string `yaml:"data_dir"`
	// FXBaseURL overrides the FX provider endpoint; empty means the default.
	FXBaseURL string `yaml:"fx_base_url,omitempty"`
	// Token, when set, is required as a ?token= query parameter.
	Token string `yaml:"token,omitempty"`
	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
}

// Get reads configuration from --config when given, falling back to the
// individual flags.
func Get(args []string) (Config, error) {
	fs := flag.NewFlagSet("taxfolio", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	listen := fs.String("listen", DefaultListen, "http listen address")
	dataDir := fs.String("datadir", DefaultDataDir, "ledger data directory")
	fxBaseURL := fs.String("fxurl", "", "fx provider base url (empty for default)")
	token := fs.String("token", "", "query token required on every request (empty disables)")
	logLevel := fs.String("loglevel", DefaultLogLevel, "zap log level")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		Listen:    *listen,
		DataDir:   *dataDir,
		FXBaseURL: *fxBaseURL,
		Token:     *token,
		LogLevel:  *logLevel,
	}
	return cfg.withDefaults(), nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}
