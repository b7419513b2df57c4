package config

import (
	"fmt"
	"os"
)

func defaultConfig() *Config {
	return &Config{
		Backend:               "direct",
		Endpoint:              "https://api.openai.com/v1/chat/completions",
		DefaultModel:          "gpt-4o-mini",
		Temperature:           0.7,
		MaxTokens:             4096,
		RequestTimeoutSeconds: 120,
		TitleEnabled:          true,
		TitleHost:             "http://localhost:11434",
		TitleModel:            "llama3.1:latest",
		ArchiveEnabled:        true,
	}
}

const defaultConfigTemplate = `# murmur configuration
#
# Environment variables with the MURMUR_ prefix override values in
# this file, e.g. MURMUR_MODEL, MURMUR_ENDPOINT, MURMUR_BACKEND.

# How chat requests reach the provider: "direct", "worker", or "edge".
backend = "direct"

# Chat completions endpoint for the direct backend.
endpoint = "https://api.openai.com/v1/chat/completions"

# Proxy endpoints for the worker and edge backends.
#worker_url = "https://chat-worker.example.workers.dev"
#edge_url = "https://chat.example.com/api/stream"

default_model = "gpt-4o-mini"
temperature = 0.7
max_tokens = 4096
request_timeout_seconds = 120

#system_prompt = "You are a helpful assistant."

# Conversation titles are generated by a local Ollama model when
# available. Falls back to the first words of the message otherwise.
title_enabled = true
title_host = "http://localhost:11434"
title_model = "llama3.1:latest"

# Persist conversations to the local archive database.
archive_enabled = true

#debug = false
`

func writeDefaultConfig(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(defaultConfigTemplate); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}
	return nil
}
