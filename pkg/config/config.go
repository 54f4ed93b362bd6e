package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"lab47.dev/juliaman/pkg/catalog"
	"lab47.dev/juliaman/pkg/store"
)

type Config struct {
	path string

	// Actual Config
	Root            string            `json:"root"`
	BinDir          string            `json:"bin-dir"`
	DownloadsURL    string            `json:"downloads-url"`
	Name            string            `json:"name"`
	LogLevel        string            `json:"log-level"`
	DownloadTimeout string            `json:"download-timeout"`
	Anchors         map[string]string `json:"anchors"`
}

const (
	DefaultConfigPath   = "~/.config/juliaman/config.json"
	DefaultRoot         = "/opt"
	DefaultBinDir       = "/usr/local/bin"
	DefaultDownloadsURL = "https://julialang.org/downloads/"
	DefaultName         = "julia"
	DefaultLogLevel     = "info"
)

// LoadConfig reads the config file named by JULIAMAN_CONFIG, or the default
// location, then applies environment overrides. A missing file just means
// defaults.
func LoadConfig() (*Config, error) {
	if loc := os.Getenv("JULIAMAN_CONFIG"); loc != "" {
		return LoadFile(loc)
	}

	path, err := homedir.Expand(DefaultConfigPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		return LoadFile(path)
	}

	cfg := &Config{path: path}

	return updateFromEnv(setDefaults(cfg))
}

// LoadFile reads the config at path, which must exist.
func LoadFile(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	var cfg Config

	err = json.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	cfg.path = path

	return updateFromEnv(setDefaults(&cfg))
}

func setDefaults(cfg *Config) *Config {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}

	if cfg.BinDir == "" {
		cfg.BinDir = DefaultBinDir
	}

	if cfg.DownloadsURL == "" {
		cfg.DownloadsURL = DefaultDownloadsURL
	}

	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return cfg
}

func updateFromEnv(cfg *Config) (*Config, error) {
	if path := os.Getenv("JULIAMAN_ROOT"); path != "" {
		fi, err := os.Stat(path)
		if err == nil && !fi.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", path)
		}

		cfg.Root = path
	}

	if path := os.Getenv("JULIAMAN_BIN_DIR"); path != "" {
		cfg.BinDir = path
	}

	if u := os.Getenv("JULIAMAN_DOWNLOADS_URL"); u != "" {
		cfg.DownloadsURL = u
	}

	if name := os.Getenv("JULIAMAN_NAME"); name != "" {
		cfg.Name = name
	}

	if lvl := os.Getenv("JULIAMAN_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	if dur := os.Getenv("JULIAMAN_DOWNLOAD_TIMEOUT"); dur != "" {
		cfg.DownloadTimeout = dur
	}

	if _, err := cfg.Timeout(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path is the file the config was read from, or would be.
func (c *Config) Path() string {
	return c.path
}

// Timeout bounds a single download. Zero means no limit.
func (c *Config) Timeout() (time.Duration, error) {
	if c.DownloadTimeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.DownloadTimeout)
	if err != nil {
		return 0, errors.Wrapf(err, "download-timeout")
	}

	return d, nil
}

func (c *Config) Store() *store.Store {
	return &store.Store{
		Root: filepath.Clean(c.Root),
		Name: c.Name,
	}
}

// Page returns the catalog extractor, with anchor labels from the config
// taking precedence over the defaults.
func (c *Config) Page() *catalog.Page {
	anchors := map[catalog.Role]string{}

	for role, label := range catalog.DefaultAnchors {
		anchors[role] = label
	}

	for role, label := range c.Anchors {
		anchors[catalog.Role(role)] = label
	}

	return &catalog.Page{Anchors: anchors}
}
