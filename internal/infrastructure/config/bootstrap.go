package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// AppName is the canonical application name.
const AppName = "modsentry"

// HomeDir returns the global configuration home: ~/.modsentry
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}

// Bootstrap ensures ~/.modsentry exists with default content. Called once
// at startup. Safe to call repeatedly: only missing items are created,
// user edits are never overwritten.
func Bootstrap(logger *zap.Logger) error {
	root := HomeDir()

	dirs := []string{
		root,
		filepath.Join(root, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	defaults := map[string]string{
		filepath.Join(root, "config.yaml"):  defaultConfig,
		filepath.Join(root, "denylist.txt"): defaultDenylist,
	}

	created := 0
	for path, content := range defaults {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Warn("Failed to write default file", zap.String("path", path), zap.Error(err))
			continue
		}
		created++
	}

	if created > 0 {
		logger.Info("Bootstrapped default configuration",
			zap.String("dir", root),
			zap.Int("files_created", created),
		)
	}
	return nil
}

const defaultConfig = `# modsentry configuration
server:
  host: 0.0.0.0
  port: 8080
  mode: local

database:
  type: sqlite
  dsn: modsentry.db

log:
  level: info
  format: json

analyzer:
  # basic | keyword | imagecheck | embedding | openaimod | gemini
  type: basic
  # denylist_path: ~/.modsentry/denylist.txt
  # base_url: ""
  # api_key: ""
  # model: gemini-1.5-flash
  # threshold: 0.3

notify:
  slack:
    webhook_url: ""
  email:
    api_key: ""
    from_address: ""
    to_address: ""
  telegram:
    bot_token: ""
    chat_id: 0
`

const defaultDenylist = `violence
hate
explicit
abuse
threat
`
