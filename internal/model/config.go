package model

import "time"

// Version reported in manifests and by the version command.
const Version = "0.2.0"

// OutputFormat selects a report encoding.
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatJSONL    OutputFormat = "jsonl"
	FormatMarkdown OutputFormat = "md"
	FormatCSV      OutputFormat = "csv"
)

// Extension returns the file extension for a format.
func (f OutputFormat) Extension() string {
	return string(f)
}

// ParseOutputFormat validates a format name.
func ParseOutputFormat(value string) (OutputFormat, bool) {
	switch OutputFormat(value) {
	case FormatJSON, FormatJSONL, FormatMarkdown, FormatCSV:
		return OutputFormat(value), true
	default:
		return "", false
	}
}

// Config is the resolved run configuration (flags over env over config file
// over defaults). It is hashed into the manifest, so every field that changes
// behavior must appear in its hash payload.
type Config struct {
	ScopePath string       `yaml:"scope" json:"scope"`
	DemoSafe  bool         `yaml:"demo_safe" json:"demo_safe"`
	NoNetwork bool         `yaml:"no_network" json:"no_network"`
	Format    OutputFormat `yaml:"format" json:"format"`
	OutputDir string       `yaml:"output" json:"output"`
	StorePath string       `yaml:"store" json:"store"`
	Detectors []string     `yaml:"detectors" json:"detectors"`
	Sources   []string     `yaml:"sources" json:"sources"`

	HTTP HTTPConfig `yaml:"http" json:"http"`
	LLM  LLMConfig  `yaml:"llm" json:"-"`

	Verbose bool `yaml:"verbose" json:"-"`
}

// HTTPConfig bounds network probing in the collection layer. CacheDir, when
// set, persists probe responses across runs; empty keeps the cache in memory
// only.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	MaxConcurrent int           `yaml:"max_concurrent" json:"max_concurrent"`
	CacheDir      string        `yaml:"cache_dir" json:"cache_dir"`
}

// LLMConfig enables the optional analyst summary on reports. It never affects
// scoring, identity, or dispositions, so it is excluded from the config hash.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
	TimeoutS  int    `yaml:"timeout_seconds"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:    FormatJSONL,
		OutputDir: "out",
		StorePath: "data/history.json",
		HTTP: HTTPConfig{
			Timeout:       15 * time.Second,
			UserAgent:     "Osprey/" + Version + " (+https://github.com/osprey-sec/osprey)",
			MaxBodyBytes:  2_000_000,
			MaxConcurrent: 4,
		},
		LLM: LLMConfig{
			MaxTokens: 1000,
			TimeoutS:  30,
		},
	}
}
