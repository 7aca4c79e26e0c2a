package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, driverPostgres, config.Store.Driver)
	assert.True(t, config.Store.Migrate)
	assert.Equal(t, "conditional", config.Draft.ClaimMode)
	assert.Equal(t, 30*time.Second, config.Listener.ResyncInterval)
	assert.False(t, config.Relay.Enabled)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  allowed_origins: ["http://localhost:5173"]
store:
  driver: memory
  seed: true
draft:
  claim_mode: last_write_wins
listener:
  resync_interval: 5s
`)
	t.Setenv("PORT", "9100")
	t.Setenv("NATS_URL", "nats://nats:4222")

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, config.Server.AllowedOrigins)
	assert.Equal(t, driverMemory, config.Store.Driver)
	assert.True(t, config.Store.Seed)
	assert.Equal(t, "last_write_wins", config.Draft.ClaimMode)
	assert.Equal(t, 5*time.Second, config.Listener.ResyncInterval)
	assert.True(t, config.Relay.Enabled)
	assert.Equal(t, "nats://nats:4222", config.Relay.NATSURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "driver", body: "store:\n  driver: sqlite\n"},
		{name: "claim mode", env: map[string]string{"CLAIM_MODE": "first_come"}},
		{name: "yaml", body: "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}
			_, err := loadConfig(path)
			assert.Error(t, err)
		})
	}

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
