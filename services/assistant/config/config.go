// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the assistant service configuration from a YAML file
// with environment-variable overrides for deploy-time settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration adapts time.Duration to YAML strings like "30m" or "1h".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30m\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full assistant service configuration.
//
// Precedence: built-in defaults < YAML file < environment variables. Secrets
// (the OpenAI key, the Postgres DSN) should come from the environment, never
// the file.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Weaviate  WeaviateConfig  `yaml:"weaviate"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Tools     ToolsConfig     `yaml:"tools"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	// DSN is the pgx connection string. Empty disables the history store:
	// the assistant still answers, it just remembers nothing.
	DSN string `yaml:"dsn"`
}

type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme"`
}

type OpenAIConfig struct {
	// APIKey left empty means the model gateway reports ErrNotConfigured
	// and every turn is answered by the fallback responder.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type RateLimitConfig struct {
	Limit  int      `yaml:"limit"`
	Window Duration `yaml:"window"`
}

type RetrievalConfig struct {
	Careers       int      `yaml:"careers"`
	HelpDocs      int      `yaml:"help_docs"`
	QA            int      `yaml:"qa"`
	BranchTimeout Duration `yaml:"branch_timeout"`
}

type PipelineConfig struct {
	// TurnDeadline bounds one whole chat turn end to end.
	TurnDeadline Duration `yaml:"turn_deadline"`
	// HistoryLimit is how many persisted turns are loaded for assembly.
	HistoryLimit int `yaml:"history_limit"`
}

type ToolsConfig struct {
	// LifeSkillsEnabled gates whether the model is offered the
	// recommend_life_skill tool at all.
	LifeSkillsEnabled bool `yaml:"life_skills_enabled"`
}

// Load reads path (optional — empty path means defaults plus environment),
// applies defaults, applies env overrides, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8085
	}
	if c.Weaviate.Host == "" {
		c.Weaviate.Host = "localhost:8080"
	}
	if c.Weaviate.Scheme == "" {
		c.Weaviate.Scheme = "http"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 20
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = Duration(time.Hour)
	}
	if c.Retrieval.Careers == 0 {
		c.Retrieval.Careers = 5
	}
	if c.Retrieval.HelpDocs == 0 {
		c.Retrieval.HelpDocs = 3
	}
	if c.Retrieval.QA == 0 {
		c.Retrieval.QA = 2
	}
	if c.Retrieval.BranchTimeout == 0 {
		c.Retrieval.BranchTimeout = Duration(5 * time.Second)
	}
	if c.Pipeline.TurnDeadline == 0 {
		c.Pipeline.TurnDeadline = Duration(30 * time.Second)
	}
	if c.Pipeline.HistoryLimit == 0 {
		c.Pipeline.HistoryLimit = 20
	}
}

// applyEnv overrides file values from the environment. Only deploy-time
// settings have env forms.
func (c *Config) applyEnv() {
	if v := os.Getenv("ASSISTANT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("WEAVIATE_HOST"); v != "" {
		c.Weaviate.Host = v
	}
	if v := os.Getenv("WEAVIATE_SCHEME"); v != "" {
		c.Weaviate.Scheme = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("ASSISTANT_LIFE_SKILLS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Tools.LifeSkillsEnabled = b
		}
	}
}

// Validate rejects configurations that cannot run. A missing OpenAI key is
// deliberately NOT an error here — the service runs in fallback-only mode.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.RateLimit.Limit < 1 {
		return fmt.Errorf("rate limit must be at least 1, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window.Std() < time.Second {
		return fmt.Errorf("rate limit window must be at least 1s, got %s", c.RateLimit.Window.Std())
	}
	if c.Retrieval.Careers < 0 || c.Retrieval.HelpDocs < 0 || c.Retrieval.QA < 0 {
		return fmt.Errorf("retrieval limits must be non-negative")
	}
	if c.Pipeline.TurnDeadline.Std() < time.Second {
		return fmt.Errorf("turn deadline must be at least 1s, got %s", c.Pipeline.TurnDeadline.Std())
	}
	if c.Tools.LifeSkillsEnabled && c.Postgres.DSN == "" {
		return fmt.Errorf("life-skill recommendations require a postgres dsn")
	}
	return nil
}
