// Package registry builds named, authenticated provider adapters from a YAML
// configuration file. Applications look adapters up by name and route
// requests through the Completer interface without knowing which vendor sits
// behind each entry.
package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/germanamz/lingua/pkg/capability"
	"github.com/germanamz/lingua/pkg/modeladapter"
	"github.com/germanamz/lingua/pkg/providers/anthropic"
	"github.com/germanamz/lingua/pkg/providers/gemini"
	"github.com/germanamz/lingua/pkg/providers/groq"
	"github.com/germanamz/lingua/pkg/providers/mistral"
	"github.com/germanamz/lingua/pkg/providers/openai"
	"github.com/germanamz/lingua/pkg/providers/openrouter"
	"github.com/germanamz/lingua/pkg/providers/provider"
)

// Config is the top-level registry configuration.
type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig describes one provider adapter instance.
type ProviderConfig struct {
	Name      string          `yaml:"name"`
	Kind      string          `yaml:"kind"`
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model     string          `yaml:"model"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig controls optional per-adapter throttling.
type RateLimitConfig struct {
	InputTPM   int    `yaml:"input_tpm"`   // Input tokens per minute (0 = no limit).
	OutputTPM  int    `yaml:"output_tpm"`  // Output tokens per minute (0 = no limit).
	RPM        int    `yaml:"rpm"`         // Requests per minute (0 = no limit).
	MaxRetries int    `yaml:"max_retries"` // Max retries on 429 (default 3).
	BaseDelay  string `yaml:"base_delay"`  // Initial backoff delay as a duration string (e.g. "1s", "500ms").
}

func (c RateLimitConfig) enabled() bool {
	return c.InputTPM > 0 || c.OutputTPM > 0 || c.RPM > 0
}

// LoadConfig reads a YAML file and returns a Config. Environment variables
// referenced as ${VAR} or $VAR in the YAML are expanded before parsing, so
// API keys can live in the environment rather than in the file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("registry: load config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("registry: parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("registry: config: at least one provider is required")
	}

	names := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("registry: config: provider name is required")
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("registry: config: duplicate provider name %q", p.Name)
		}
		names[p.Name] = struct{}{}

		if _, ok := capability.ForProvider(p.Kind); !ok {
			return fmt.Errorf("registry: config: provider %q: unknown kind %q", p.Name, p.Kind)
		}
		if p.Model == "" {
			return fmt.Errorf("registry: config: provider %q: model is required", p.Name)
		}

		if p.RateLimit.BaseDelay != "" {
			if _, err := time.ParseDuration(p.RateLimit.BaseDelay); err != nil {
				return fmt.Errorf("registry: config: provider %q: invalid base_delay: %w", p.Name, err)
			}
		}
	}

	return nil
}

// entry pairs a built completer with the capabilities of its provider kind.
type entry struct {
	completer provider.Completer
	caps      capability.Capabilities
}

// Registry holds built adapters keyed by their configured names.
type Registry struct {
	entries map[string]entry
	order   []string
}

// Build validates the configuration and constructs one adapter per provider
// entry. Adapters with rate limit settings are wrapped in a
// RateLimitedCompleter.
func Build(cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{entries: make(map[string]entry, len(cfg.Providers))}

	for _, pc := range cfg.Providers {
		c, err := buildCompleter(pc)
		if err != nil {
			return nil, err
		}

		if pc.RateLimit.enabled() {
			c = modeladapter.NewRateLimitedCompleter(c, rateLimitOpts(pc.RateLimit))
		}

		caps, _ := capability.ForProvider(pc.Kind)
		r.entries[pc.Name] = entry{completer: c, caps: caps}
		r.order = append(r.order, pc.Name)
	}

	return r, nil
}

func rateLimitOpts(c RateLimitConfig) modeladapter.RateLimitOpts {
	opts := modeladapter.RateLimitOpts{
		InputTPM:   c.InputTPM,
		OutputTPM:  c.OutputTPM,
		RPM:        c.RPM,
		MaxRetries: c.MaxRetries,
	}

	if c.BaseDelay != "" {
		// Validate already checked the format.
		opts.BaseDelay, _ = time.ParseDuration(c.BaseDelay)
	}

	return opts
}

func buildCompleter(pc ProviderConfig) (provider.Completer, error) {
	switch pc.Kind {
	case provider.OpenAI:
		return openai.New(baseURL(pc, "https://api.openai.com"), pc.APIKey, pc.Model), nil
	case provider.Anthropic:
		return anthropic.New(baseURL(pc, "https://api.anthropic.com"), pc.APIKey, pc.Model), nil
	case provider.Gemini:
		return gemini.New(baseURL(pc, gemini.DefaultBaseURL), pc.APIKey, pc.Model), nil
	case provider.OpenRouter:
		return openrouter.New(baseURL(pc, openrouter.DefaultBaseURL), pc.APIKey, pc.Model), nil
	case provider.Mistral:
		return mistral.New(baseURL(pc, mistral.DefaultBaseURL), pc.APIKey, pc.Model), nil
	case provider.Groq:
		return groq.New(pc.APIKey, pc.Model, nil), nil
	}

	return nil, fmt.Errorf("registry: provider %q: unknown kind %q", pc.Name, pc.Kind)
}

func baseURL(pc ProviderConfig, def string) string {
	if pc.BaseURL != "" {
		return pc.BaseURL
	}

	return def
}

// Completer returns the adapter registered under name.
func (r *Registry) Completer(name string) (provider.Completer, bool) {
	e, ok := r.entries[name]

	return e.completer, ok
}

// Capabilities returns the capability table of the provider kind behind name.
func (r *Registry) Capabilities(name string) (capability.Capabilities, bool) {
	e, ok := r.entries[name]

	return e.caps, ok
}

// Names returns the registered adapter names in configuration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}
