package doctor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/chanfeed/internal/core/config"
)

func TestConfigCheck_NotLoaded(t *testing.T) {
	result := NewConfigCheck(nil, "").Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func TestConfigCheck_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	result := NewConfigCheck(&cfg, filepath.Join(t.TempDir(), "missing.yaml")).Run(context.Background())

	require.Len(t, result.Items, 2)
	assert.Equal(t, "not found, using defaults", result.Items[0].Detail)
	assert.Equal(t, "Config valid", result.Items[1].Label)
	assert.Equal(t, StatusPass, result.Items[1].Status)
}

func TestConfigCheck_ErrorsAndWarnings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.ViewRole = "KING"
	cfg.AutoFollow.Enabled = false

	results := RunAll(context.Background(), []Check{NewConfigCheck(&cfg, "")})

	tally := Summarize(results)
	assert.Equal(t, 1, tally.Passed)
	assert.Equal(t, 1, tally.Warned)
	assert.Equal(t, 1, tally.Failed)
	assert.False(t, tally.Healthy())

	var labels []string
	for _, item := range results[0].Items {
		labels = append(labels, item.Label)
		assert.Empty(t, item.Channel)
	}
	assert.Contains(t, labels, "view_role")
	assert.Contains(t, labels, "Auto Follow (auto_follow.enabled)")
}
