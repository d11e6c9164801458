package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxTokens is the completion token budget per request (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (default 0, deterministic).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// StoreConfig holds settings for the evidence store.
type StoreConfig struct {
	// DataDir is the base directory for persistent data (contains evidence.db).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ReviewConfig holds settings for the evidence review stage.
type ReviewConfig struct {
	AIConfig   `yaml:",inline"`
	HTTPConfig `yaml:",inline"`

	// Concurrency is the number of papers extracted in parallel per question (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RequestsPerMinute caps the aggregate AI request rate (default 30).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// TagLimit is the maximum number of tags proposed per paper (default 5).
	TagLimit int `json:"tag_limit" yaml:"tag_limit"`

	// MaxChunkChars is the chunk size ceiling in characters (default 4000).
	MaxChunkChars int `json:"max_chunk_chars" yaml:"max_chunk_chars"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	HTTP   HTTPConfig   `json:"http" yaml:"http"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Review ReviewConfig `json:"review" yaml:"review"`
}
