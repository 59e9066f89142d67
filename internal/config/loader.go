package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// validSTTProviders lists the recognised transcription backends.
var validSTTProviders = []string{"openai"}

// validCoachProviders lists the recognised coach LLM backends.
var validCoachProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek",
	"mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills unset fields with
// defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills fields the YAML left empty.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreMemory
	}
	if cfg.STT.Provider != "" && cfg.STT.Model == "" {
		cfg.STT.Model = "whisper-1"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.STT.Provider != "" && !contains(validSTTProviders, cfg.STT.Provider) {
		errs = append(errs, fmt.Errorf("stt.provider %q is unknown; valid values: %v", cfg.STT.Provider, validSTTProviders))
	}
	if cfg.STT.Provider != "" && cfg.STT.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		errs = append(errs, fmt.Errorf("stt.api_key is required for provider %q (or set OPENAI_API_KEY)", cfg.STT.Provider))
	}
	if cfg.STT.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("stt.timeout_seconds must not be negative"))
	}

	if cfg.Scoring.CorrectThreshold < 0 || cfg.Scoring.CorrectThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.correct_threshold %d outside [0,100]", cfg.Scoring.CorrectThreshold))
	}

	if cfg.Coach.Enabled {
		if !contains(validCoachProviders, cfg.Coach.Provider) {
			errs = append(errs, fmt.Errorf("coach.provider %q is unknown; valid values: %v", cfg.Coach.Provider, validCoachProviders))
		}
		if cfg.Coach.Model == "" {
			errs = append(errs, fmt.Errorf("coach.model is required when the coach is enabled"))
		}
	}

	if !cfg.Store.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: memory, postgres", cfg.Store.Driver))
	}
	if cfg.Store.Driver == StorePostgres && cfg.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required for the postgres driver"))
	}

	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}
