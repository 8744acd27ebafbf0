// Package projectconfig provides the ProjectConfig struct and loader for
// .rrgen.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spboyer/rrgen/internal/radeval"
	"github.com/spboyer/rrgen/internal/utils"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".rrgen.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultDataDir        = "data/indiana_university"
	DefaultPredictionsDir = "results/predictions"
	DefaultResultsDir     = "results"

	DefaultInferenceBaseURL = "http://localhost:8000/v1"
	DefaultInferenceModel   = "nvidia-reason-3b"
	DefaultAPIKeyEnv        = "OPENAI_API_KEY"
	DefaultMaxTokens        = 1024

	DefaultScoringEngine  = "http"
	DefaultScoringURL     = "http://localhost:8001"
	DefaultScoringCommand = "python"

	DefaultCacheEnabled = false
	DefaultCacheDir     = ".rrgen-cache"
)

// PathsConfig holds the dataset, predictions and results directories.
type PathsConfig struct {
	Data        string `yaml:"data,omitempty"`
	Predictions string `yaml:"predictions,omitempty"`
	Results     string `yaml:"results,omitempty"`
}

// InferenceConfig describes the model server used by `rrgen infer`.
type InferenceConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
	// Timeout in seconds; 0 waits indefinitely.
	Timeout int `yaml:"timeout,omitempty"`
}

// ScoringConfig describes how to reach the scoring engine.
type ScoringConfig struct {
	Engine  string   `yaml:"engine,omitempty"`
	URL     string   `yaml:"url,omitempty"`
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	// Timeout in seconds; 0 waits indefinitely.
	Timeout int `yaml:"timeout,omitempty"`
	// Metrics is the default selection when --metrics is not given.
	Metrics []string       `yaml:"metrics,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// ArchiveConfig enables uploading outputs to Azure Blob Storage.
type ArchiveConfig struct {
	AccountURL string `yaml:"account_url,omitempty"`
	Container  string `yaml:"container,omitempty"`
	Prefix     string `yaml:"prefix,omitempty"`
	// Compress gzips uploads.
	Compress bool `yaml:"compress,omitempty"`
}

// CacheConfig controls the on-disk scoring cache.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .rrgen.yaml.
type ProjectConfig struct {
	Paths     PathsConfig     `yaml:"paths,omitempty"`
	Inference InferenceConfig `yaml:"inference,omitempty"`
	Scoring   ScoringConfig   `yaml:"scoring,omitempty"`
	Archive   ArchiveConfig   `yaml:"archive,omitempty"`
	Cache     CacheConfig     `yaml:"cache,omitempty"`

	// baseDir anchors relative paths: the config file's directory, or the
	// start directory when no file was found.
	baseDir string
	// source is the config file that was loaded, if any.
	source string
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Paths: PathsConfig{
			Data:        DefaultDataDir,
			Predictions: DefaultPredictionsDir,
			Results:     DefaultResultsDir,
		},
		Inference: InferenceConfig{
			BaseURL:   DefaultInferenceBaseURL,
			Model:     DefaultInferenceModel,
			APIKeyEnv: DefaultAPIKeyEnv,
			MaxTokens: DefaultMaxTokens,
		},
		Scoring: ScoringConfig{
			Engine:  DefaultScoringEngine,
			URL:     DefaultScoringURL,
			Command: DefaultScoringCommand,
		},
		Cache: CacheConfig{
			Enabled: boolPtr(DefaultCacheEnabled),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .rrgen.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", startDir, err)
	}
	cfg.baseDir = absStart

	path, data, err := findConfigFile(absStart)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	return apply(cfg, path, data)
}

// LoadFile loads an explicit config file. Unlike Load, a missing file is an
// error.
func LoadFile(path string) (*ProjectConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return apply(New(), abs, data)
}

func apply(cfg *ProjectConfig, path string, data []byte) (*ProjectConfig, error) {
	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Merge file values onto defaults.
	mergeConfig(cfg, &fileCfg)
	cfg.baseDir = filepath.Dir(path)
	cfg.source = path
	return cfg, nil
}

// findConfigFile walks up from dir looking for .rrgen.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) (string, []byte, error) {
	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	// Paths
	if src.Paths.Data != "" {
		dst.Paths.Data = src.Paths.Data
	}
	if src.Paths.Predictions != "" {
		dst.Paths.Predictions = src.Paths.Predictions
	}
	if src.Paths.Results != "" {
		dst.Paths.Results = src.Paths.Results
	}

	// Inference
	if src.Inference.BaseURL != "" {
		dst.Inference.BaseURL = src.Inference.BaseURL
	}
	if src.Inference.Model != "" {
		dst.Inference.Model = src.Inference.Model
	}
	if src.Inference.APIKeyEnv != "" {
		dst.Inference.APIKeyEnv = src.Inference.APIKeyEnv
	}
	if src.Inference.MaxTokens != 0 {
		dst.Inference.MaxTokens = src.Inference.MaxTokens
	}
	if src.Inference.Timeout != 0 {
		dst.Inference.Timeout = src.Inference.Timeout
	}

	// Scoring
	if src.Scoring.Engine != "" {
		dst.Scoring.Engine = src.Scoring.Engine
	}
	if src.Scoring.URL != "" {
		dst.Scoring.URL = src.Scoring.URL
	}
	if src.Scoring.Command != "" {
		dst.Scoring.Command = src.Scoring.Command
	}
	if src.Scoring.Args != nil {
		dst.Scoring.Args = src.Scoring.Args
	}
	if src.Scoring.Timeout != 0 {
		dst.Scoring.Timeout = src.Scoring.Timeout
	}
	if src.Scoring.Metrics != nil {
		dst.Scoring.Metrics = src.Scoring.Metrics
	}
	if src.Scoring.Options != nil {
		dst.Scoring.Options = src.Scoring.Options
	}

	// Archive
	if src.Archive.AccountURL != "" {
		dst.Archive.AccountURL = src.Archive.AccountURL
	}
	if src.Archive.Container != "" {
		dst.Archive.Container = src.Archive.Container
	}
	if src.Archive.Prefix != "" {
		dst.Archive.Prefix = src.Archive.Prefix
	}
	if src.Archive.Compress {
		dst.Archive.Compress = true
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
}

// Source is the loaded config file path, or "" when defaults are in use.
func (c *ProjectConfig) Source() string {
	return c.source
}

// DataDir is Paths.Data resolved against the config location.
func (c *ProjectConfig) DataDir() string {
	return utils.ResolvePath(c.Paths.Data, c.baseDir)
}

// PredictionsDir is Paths.Predictions resolved against the config location.
func (c *ProjectConfig) PredictionsDir() string {
	return utils.ResolvePath(c.Paths.Predictions, c.baseDir)
}

// ResultsDir is Paths.Results resolved against the config location.
func (c *ProjectConfig) ResultsDir() string {
	return utils.ResolvePath(c.Paths.Results, c.baseDir)
}

// EngineConfig converts the scoring section for radeval.New.
func (c *ProjectConfig) EngineConfig() radeval.EngineConfig {
	return radeval.EngineConfig{
		Kind:    radeval.Kind(c.Scoring.Engine),
		URL:     c.Scoring.URL,
		Command: c.Scoring.Command,
		Args:    c.Scoring.Args,
		Timeout: time.Duration(c.Scoring.Timeout) * time.Second,
	}
}

// EngineOptions decodes scoring.options, rejecting keys the engine adapter
// does not know.
func (c *ProjectConfig) EngineOptions() (radeval.Options, error) {
	return radeval.DecodeOptions(c.Scoring.Options)
}

// APIKey reads the inference API key from the configured environment
// variable.
func (c *ProjectConfig) APIKey() string {
	if c.Inference.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Inference.APIKeyEnv)
}

// InferenceTimeout is Inference.Timeout as a duration.
func (c *ProjectConfig) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.Timeout) * time.Second
}

// ArchiveEnabled reports whether outputs should be uploaded.
func (c *ProjectConfig) ArchiveEnabled() bool {
	return c.Archive.AccountURL != "" && c.Archive.Container != ""
}

// CacheEnabled reports whether scoring results are cached.
func (c *ProjectConfig) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// CacheDir is Cache.Dir resolved against the config location.
func (c *ProjectConfig) CacheDir() string {
	return utils.ResolvePath(c.Cache.Dir, c.baseDir)
}

func boolPtr(b bool) *bool {
	return &b
}
