package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 8080
	defaultURLWarnLength = 2000
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Share      ShareConfig       `yaml:"share"`
	Assistants []AssistantConfig `yaml:"assistants"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ShareConfig controls how shareable links are built.
type ShareConfig struct {
	// BaseURL is the public origin and directory of the scan page. When empty
	// it is derived from the location of each request.
	BaseURL       string `yaml:"base_url"`
	URLWarnLength int    `yaml:"url_warn_length"`
}

// AssistantConfig describes an external AI assistant reachable by link.
type AssistantConfig struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	BaseURL string `yaml:"base_url"`
}

// DefaultAssistants are used when the configuration lists none.
func DefaultAssistants() []AssistantConfig {
	return []AssistantConfig{
		{Name: "chatgpt", Label: "ChatGPT", BaseURL: "https://chat.openai.com/?q="},
		{Name: "perplexity", Label: "Perplexity", BaseURL: "https://www.perplexity.ai/search?q="},
		{Name: "mistral", Label: "Mistral", BaseURL: "https://chat.mistral.ai/chat?q="},
	}
}

// Default returns a configuration usable without a file.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML configuration from disk, fills defaults and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Share.URLWarnLength == 0 {
		c.Share.URLWarnLength = defaultURLWarnLength
	}
	if len(c.Assistants) == 0 {
		c.Assistants = DefaultAssistants()
	}
	for i := range c.Assistants {
		a := &c.Assistants[i]
		a.Name = strings.TrimSpace(a.Name)
		if strings.TrimSpace(a.Label) == "" {
			a.Label = a.Name
		}
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if c.Share.URLWarnLength <= 0 {
		return fmt.Errorf("share.url_warn_length must be positive, got %d", c.Share.URLWarnLength)
	}
	if c.Share.BaseURL != "" {
		if err := validateHTTPURL(c.Share.BaseURL); err != nil {
			return fmt.Errorf("share.base_url: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(c.Assistants))
	for _, assistant := range c.Assistants {
		if err := validateAssistant(assistant); err != nil {
			return err
		}
		if _, exists := seen[assistant.Name]; exists {
			return fmt.Errorf("assistant %s: configured more than once", assistant.Name)
		}
		seen[assistant.Name] = struct{}{}
	}

	return nil
}

func validateAssistant(assistant AssistantConfig) error {
	if assistant.Name == "" {
		return fmt.Errorf("assistant name must not be empty")
	}
	if strings.ContainsAny(assistant.Name, " \t\n") {
		return fmt.Errorf("assistant %q: name must not contain whitespace", assistant.Name)
	}
	if strings.TrimSpace(assistant.BaseURL) == "" {
		return fmt.Errorf("assistant %s: base_url must be provided", assistant.Name)
	}
	if err := validateHTTPURL(assistant.BaseURL); err != nil {
		return fmt.Errorf("assistant %s: base_url: %w", assistant.Name, err)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q must be an absolute http(s) url", raw)
	}
	return nil
}
