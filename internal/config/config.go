// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Guard     GuardConfig     `yaml:"guard"`
	Context   ContextConfig   `yaml:"context"`
	Command   CommandConfig   `yaml:"command"`
	Intent    IntentConfig    `yaml:"intent"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
	Messages  MessagesConfig  `yaml:"messages"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds paths for the parent store and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig selects and configures the embedder.
// Provider is one of "onnx", "gemini" or "hash".
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	ModelPath   string `yaml:"model_path"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	GeminiModel string `yaml:"gemini_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
}

// Reranker failure policies.
const (
	RerankDegrade = "degrade"
	RerankFail    = "fail"
)

// RerankConfig selects the re-ranking capability. Provider is one of "onnx", "lexical" or "none".
// OnFailure decides whether an unavailable reranker degrades to similarity order or fails the request.
type RerankConfig struct {
	Provider  string        `yaml:"provider"`
	ModelPath string        `yaml:"model_path"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	OnFailure string        `yaml:"on_failure"`
}

// LLMConfig selects the generative capability. Provider is one of "openai" or "gemini".
type LLMConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Temperature       float64       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// BiasPattern widens retrieval toward Domain when Pattern matches the query.
type BiasPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Domain  string `yaml:"domain"`
}

// RetrievalConfig holds the two-stage retrieval widths.
type RetrievalConfig struct {
	TopK           int           `yaml:"top_k"`
	InitialK       int           `yaml:"initial_k"`
	OverfetchRatio int           `yaml:"overfetch_ratio"`
	KeywordLimit   int           `yaml:"keyword_limit"`
	KeywordBias    []BiasPattern `yaml:"keyword_bias"`
}

// GuardConfig holds the guardrail thresholds and the confidence normalization.
// Distances are cosine distances, lower is better.
type GuardConfig struct {
	TopScoreMax     float64 `yaml:"top_score_max"`
	GoodHitScoreMax float64 `yaml:"good_hit_score_max"`
	MinGoodHits     int     `yaml:"min_good_hits"`
	ConfScoreMin    float64 `yaml:"conf_score_min"`
	ConfScoreMax    float64 `yaml:"conf_score_max"`
	BaseWeight      float64 `yaml:"base_weight"`
	BonusPerHit     float64 `yaml:"bonus_per_hit"`
	BonusCapHits    int     `yaml:"bonus_cap_hits"`
	HighCut         float64 `yaml:"high_cut"`
	MediumCut       float64 `yaml:"medium_cut"`
}

// ContextConfig bounds the context handed to the generative capability. Sizes are in characters.
type ContextConfig struct {
	MaxCharsPerDoc  int `yaml:"max_chars_per_doc"`
	MaxContextChars int `yaml:"max_context_chars"`
	HardLimit       int `yaml:"hard_limit"`
}

// CommandConfig configures the command gate.
type CommandConfig struct {
	RegistryPath  string `yaml:"registry_path"`
	MinConfidence string `yaml:"min_confidence"`
}

// IntentConfig adds patterns to the built-in intent lexicons.
type IntentConfig struct {
	CommandPatterns []string `yaml:"command_patterns"`
	ExplainPatterns []string `yaml:"explain_patterns"`
}

// DomainRule assigns Domain to ingested files whose path matches the glob Pattern.
type DomainRule struct {
	Pattern string `yaml:"pattern"`
	Domain  string `yaml:"domain"`
}

// IngestConfig holds splitting and classification settings for ingestion.
type IngestConfig struct {
	ParentChunkSize    int           `yaml:"parent_chunk_size"`
	ParentChunkOverlap int           `yaml:"parent_chunk_overlap"`
	ChildChunkSize     int           `yaml:"child_chunk_size"`
	ChildChunkOverlap  int           `yaml:"child_chunk_overlap"`
	Extensions         []string      `yaml:"extensions"`
	DefaultDomain      string        `yaml:"default_domain"`
	DomainRules        []DomainRule  `yaml:"domain_rules"`
	LockTimeout        time.Duration `yaml:"lock_timeout"`
	// MaxFileBytes skips larger files during file ingestion.
	MaxFileBytes       int64         `yaml:"max_file_bytes"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// MessagesConfig holds the user-facing guidance strings.
type MessagesConfig struct {
	NoEvidence           string `yaml:"no_evidence"`
	InsufficientEvidence string `yaml:"insufficient_evidence"`
	NoCommand            string `yaml:"no_command"`
	LowConfidence        string `yaml:"low_confidence"`
	ParseFailed          string `yaml:"parse_failed"`
	NotAllowed           string `yaml:"not_allowed"`
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
// Returns an error if the file cannot be read or parsed, or a value is out of range.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Rerank.ModelPath = expandPath(cfg.Rerank.ModelPath, configDir)
	if cfg.Command.RegistryPath != "" {
		cfg.Command.RegistryPath = expandPath(cfg.Command.RegistryPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// EffectiveInitialK returns the similarity-search width for a request of width topK:
// the larger of InitialK and OverfetchRatio*topK.
func (r *RetrievalConfig) EffectiveInitialK(topK int) int {
	k := r.OverfetchRatio * topK
	if r.InitialK > k {
		k = r.InitialK
	}
	return k
}

// Validate rejects configurations the pipeline cannot honour.
func (c *Config) Validate() error {
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("invalid config: retrieval.top_k must be positive")
	}
	if c.Retrieval.OverfetchRatio < 5 {
		return fmt.Errorf("invalid config: retrieval.overfetch_ratio must be at least 5, got %d", c.Retrieval.OverfetchRatio)
	}
	switch c.Rerank.OnFailure {
	case RerankDegrade, RerankFail:
	default:
		return fmt.Errorf("invalid config: rerank.on_failure must be %q or %q, got %q", RerankDegrade, RerankFail, c.Rerank.OnFailure)
	}
	if c.Guard.ConfScoreMin >= c.Guard.ConfScoreMax {
		return fmt.Errorf("invalid config: guard.conf_score_min (%g) must be below conf_score_max (%g)", c.Guard.ConfScoreMin, c.Guard.ConfScoreMax)
	}
	if c.Guard.MediumCut > c.Guard.HighCut {
		return fmt.Errorf("invalid config: guard.medium_cut (%g) must not exceed high_cut (%g)", c.Guard.MediumCut, c.Guard.HighCut)
	}
	if c.Guard.BaseWeight < 0 || c.Guard.BonusPerHit < 0 {
		return fmt.Errorf("invalid config: guard weights must be non-negative")
	}
	switch c.Command.MinConfidence {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("invalid config: command.min_confidence must be low, medium or high, got %q", c.Command.MinConfidence)
	}
	for _, p := range c.Retrieval.KeywordBias {
		if p.Pattern == "" || p.Domain == "" {
			return fmt.Errorf("invalid config: keyword_bias %q needs a pattern and a domain", p.Name)
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
