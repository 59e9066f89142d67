// Package config provides the configuration schema and loader for the
// Accentor pronunciation-assessment server.
package config

// LogLevel controls log verbosity for the Accentor server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StoreDriver selects the session/attempt storage backend.
type StoreDriver string

const (
	// StoreMemory keeps sessions and attempts in process memory.
	StoreMemory StoreDriver = "memory"

	// StorePostgres persists sessions and attempts in PostgreSQL.
	StorePostgres StoreDriver = "postgres"
)

// IsValid reports whether d is a recognised store driver.
func (d StoreDriver) IsValid() bool {
	return d == StoreMemory || d == StorePostgres
}

// Config is the root configuration structure for Accentor.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	STT     STTConfig     `yaml:"stt"`
	Scoring ScoringConfig `yaml:"scoring"`
	Coach   CoachConfig   `yaml:"coach"`
	Store   StoreConfig   `yaml:"store"`
	Export  ExportConfig  `yaml:"export"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// STTConfig selects and configures the transcription provider.
type STTConfig struct {
	// Provider selects the backend. Currently "openai" or empty (audio
	// endpoint disabled; only pre-transcribed attempts are accepted).
	Provider string `yaml:"provider"`

	// APIKey is the provider's authentication key.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. Useful for
	// OpenAI-compatible local Whisper servers.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "whisper-1").
	Model string `yaml:"model"`

	// Language is the default BCP-47 recognition language.
	Language string `yaml:"language"`

	// TimeoutSeconds bounds each transcription call. 0 means the engine
	// default (30s).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ScoringConfig tunes the scoring core.
type ScoringConfig struct {
	// CorrectThreshold is the word score at or above which a word counts
	// as correct. 0 means the engine default (80).
	CorrectThreshold int `yaml:"correct_threshold"`
}

// CoachConfig configures the optional LLM feedback-phrasing stage.
type CoachConfig struct {
	// Enabled turns the coach stage on. Off by default; the deterministic
	// feedback report is produced either way.
	Enabled bool `yaml:"enabled"`

	// Provider selects the LLM backend: "openai", "anthropic", "gemini",
	// "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile".
	Provider string `yaml:"provider"`

	// Model is the model identifier (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// APIKey is the backend key. When empty the backend falls back to its
	// environment variable (e.g., OPENAI_API_KEY).
	APIKey string `yaml:"api_key"`
}

// StoreConfig selects the storage backend for sessions and attempts.
type StoreConfig struct {
	// Driver selects the backend. Default: "memory".
	Driver StoreDriver `yaml:"driver"`

	// DSN is the PostgreSQL connection string, required for the
	// "postgres" driver.
	DSN string `yaml:"dsn"`
}

// ExportConfig configures the local JSONL attempt log.
type ExportConfig struct {
	// Path is the JSON-lines file attempts are appended to. Empty disables
	// the export.
	Path string `yaml:"path"`
}

// Default returns a Config populated with development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		STT: STTConfig{
			Language: "en",
		},
		Store: StoreConfig{
			Driver: StoreMemory,
		},
	}
}
