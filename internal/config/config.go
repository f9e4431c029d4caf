// Package config loads process configuration from an optional YAML file
// and LLMSTREAM_-prefixed environment variables, environment winning.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the process-wide configuration, read once at startup. The
// debug flag is threaded explicitly into the components that need it.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	OpenAI     ProviderConfig   `koanf:"openai"`
	Anthropic  ProviderConfig   `koanf:"anthropic"`
	Debug      DebugConfig      `koanf:"debug"`
	Transcript TranscriptConfig `koanf:"transcript"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type ProviderConfig struct {
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the provider endpoint for self-hosted or
	// compatible bases.
	BaseURL string `koanf:"base_url"`
}

type DebugConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type TranscriptConfig struct {
	// Path is the SQLite database for pass transcripts. Empty disables
	// recording.
	Path string `koanf:"path"`
}

// Load reads configuration. path names an optional YAML file; empty skips
// the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Only the first underscore separates the section from the key, so
	// LLMSTREAM_OPENAI_API_KEY maps to openai.api_key.
	if err := k.Load(env.Provider("LLMSTREAM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "LLMSTREAM_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	// Defaults
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("debug.dir") {
		k.Set("debug.dir", "./debug")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
