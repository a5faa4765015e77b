package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Market Scout Configuration

[provider]
# Base URL of the market data API
base_url = "https://api.example-marketdata.com/v1"
# Provider request rate limit (requests per second) and burst size
rate_rps = 5.0
rate_burst = 1
# HTTP request timeout
timeout = "10s"

[screener]
# Symbols to screen by default
watchlist = []
# Maximum candidates evaluated per earnings scan
max_candidates = 10
# Calendar entries used when the watchlist matches nothing
fallback_size = 20
# Concurrent workers for bounce/volume scans
concurrency = 4

[alerts]
# Proximity window for earnings alerts, in hours
earnings_window_hours = 24

[storage]
# Path to the embedded database (defaults under the config directory)
# path = ""

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true
max_size = 50
max_backups = 5
max_age = 30
`

const credentialsTemplate = `# Market Scout Credentials
# Keep this file private (chmod 600).

[provider]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
