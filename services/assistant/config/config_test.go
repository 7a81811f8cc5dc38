// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assistant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8085, cfg.Server.Port)
	assert.Equal(t, 20, cfg.RateLimit.Limit)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window.Std())
	assert.Equal(t, 5, cfg.Retrieval.Careers)
	assert.Equal(t, 3, cfg.Retrieval.HelpDocs)
	assert.Equal(t, 2, cfg.Retrieval.QA)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.TurnDeadline.Std())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.False(t, cfg.Tools.LifeSkillsEnabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
rate_limit:
  limit: 5
  window: 30m
retrieval:
  careers: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window.Std())
	assert.Equal(t, 2, cfg.Retrieval.Careers)
	// Untouched fields keep defaults.
	assert.Equal(t, 3, cfg.Retrieval.HelpDocs)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("ASSISTANT_PORT", "7070")
	t.Setenv("OPENAI_API_KEY", "sk-test-key-from-environment")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sk-test-key-from-environment", cfg.OpenAI.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/assistant.yaml")
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad_port", func(c *Config) { c.Server.Port = -1 }},
		{"zero_rate_limit", func(c *Config) { c.RateLimit.Limit = -5 }},
		{"tiny_window", func(c *Config) { c.RateLimit.Window = Duration(time.Millisecond) }},
		{"negative_retrieval", func(c *Config) { c.Retrieval.QA = -1 }},
		{"tiny_deadline", func(c *Config) { c.Pipeline.TurnDeadline = Duration(time.Millisecond) }},
		{"tools_without_postgres", func(c *Config) {
			c.Tools.LifeSkillsEnabled = true
			c.Postgres.DSN = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ToolsWithPostgresOK(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Tools.LifeSkillsEnabled = true
	cfg.Postgres.DSN = "postgres://localhost/kazipath"
	assert.NoError(t, cfg.Validate())
}
