package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitGeneratesRunTemplate(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.json")
	c := &ConfigInit{Format: "json", Output: dest}

	require.NoError(t, c.Run())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	var root map[string]any
	require.NoError(t, json.Unmarshal(data, &root))

	remap, ok := root["remap"].(map[string]any)
	require.True(t, ok, "template must contain the remap section")
	assert.Equal(t, true, remap["sideButtons"])
	assert.Equal(t, true, remap["extraButtons"])
	assert.Equal(t, "10ms", remap["hold"])

	assert.Contains(t, root, "noGrab")
	assert.Contains(t, root, "device")
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(dest, []byte("{}"), 0o644))

	c := &ConfigInit{Format: "json", Output: dest}
	assert.Error(t, c.Run())

	c.Force = true
	assert.NoError(t, c.Run())
}

func TestConfigInitRejectsUnknownFormat(t *testing.T) {
	c := &ConfigInit{Format: "ini"}
	assert.Error(t, c.Run())
}
