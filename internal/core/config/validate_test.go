package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		names = append(names, fe.Field)
	}
	return names
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validConfig(t).Validate())
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"empty server", func(c *Config) { c.ServerJID = "" }, "server_jid"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"negative timeout", func(c *Config) { c.QueryTimeout = -time.Second }, "query_timeout"},
		{"zero workers", func(c *Config) { c.DecryptWorkers = 0 }, "decrypt_workers"},
		{"unknown role", func(c *Config) { c.ViewRole = "VIEWER" }, "view_role"},
		{"bad channel", func(c *Config) { c.AutoFollow.Channel = "123@g.us" }, "auto_follow.channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			assert.Contains(t, fieldNames(t, cfg.Validate()), tt.field)
		})
	}
}

func TestValidate_DisabledAutoFollowIgnoresChannel(t *testing.T) {
	cfg := validConfig(t)
	cfg.AutoFollow = AutoFollowConfig{Enabled: false, Channel: "not-a-channel"}

	assert.NoError(t, cfg.Validate())
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.DataDir = file

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep("")), "data_dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep(t.TempDir())), "config_file")
}

func TestValidateDeep_MissingConfigFileIsFine(t *testing.T) {
	cfg := validConfig(t)

	assert.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidateDeep_CombinesBasicErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.ViewRole = "nobody"

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep(t.TempDir())), "view_role")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.DecryptWorkers = 500
	cfg.QueryTimeout = 10 * time.Millisecond
	cfg.AutoFollow.Enabled = false

	items := make([]string, 0)
	for _, w := range cfg.Warnings() {
		items = append(items, w.Item)
	}
	assert.ElementsMatch(t, []string{"decrypt_workers", "query_timeout", "auto_follow.enabled"}, items)
}
