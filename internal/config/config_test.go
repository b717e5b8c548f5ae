package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, Filename), []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoadNormalizesLegacySources(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  "registry_sources": {
    "legacy": "https://registry.example.com/index.json",
    "full": {"url": "https://other.example.com/index.json", "priority": 10, "enabled": false}
  }
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	legacy, ok := cfg.RegistrySources.Get("legacy")
	require.True(t, ok)
	assert.Equal(t, "https://registry.example.com/index.json", legacy.URL)
	assert.Equal(t, DefaultPriority, legacy.Priority)
	assert.True(t, legacy.Enabled)

	full, ok := cfg.RegistrySources.Get("full")
	require.True(t, ok)
	assert.Equal(t, 10, full.Priority)
	assert.False(t, full.Enabled)
}

func TestLoadSynthesizesDefaultSource(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"default_registry_url": "https://registry.example.com/index.json"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.RegistrySources.Len())

	entry, ok := cfg.RegistrySources.Get(DefaultSourceAlias)
	require.True(t, ok)
	assert.True(t, entry.IsDefault())
	assert.Equal(t, "https://registry.example.com/index.json", entry.URL)
}

func TestLoadAcceptsComments(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  // the company registry
  "default_registry_url": "https://registry.example.com/index.json"
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://registry.example.com/index.json", cfg.DefaultRegistryURL)
}

func TestSortedPriorityOrder(t *testing.T) {
	m := NewSourceMap()
	err := json.Unmarshal([]byte(`{
  "negative": {"url": "https://a.example.com/index.json", "priority": -10},
  "high": {"url": "https://b.example.com/index.json", "priority": 10},
  "tie1": {"url": "https://c.example.com/index.json", "priority": 50},
  "tie2": {"url": "https://d.example.com/index.json", "priority": 50},
  "defaulted": "https://e.example.com/index.json",
  "last": {"url": "https://f.example.com/index.json", "priority": 200},
  "off": {"url": "https://g.example.com/index.json", "priority": 1, "enabled": false}
}`), m)
	require.NoError(t, err)

	var order []string
	for _, entry := range m.Sorted() {
		order = append(order, entry.Alias)
	}
	// ties (tie1/tie2) keep config-file order
	assert.Equal(t, []string{"negative", "off", "high", "tie1", "tie2", "defaulted", "last"}, order)

	var enabled []string
	for _, entry := range m.SortedEnabled() {
		enabled = append(enabled, entry.Alias)
	}
	assert.Equal(t, []string{"negative", "high", "tie1", "tie2", "defaulted", "last"}, enabled)
}

func TestSaveKeepsTieOrder(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  "registry_sources": {
    "zeta": {"url": "https://zeta.example.com/index.json", "priority": 50},
    "alpha": {"url": "https://alpha.example.com/index.json", "priority": 50}
  }
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	order := func(c *Config) []string {
		var aliases []string
		for _, entry := range c.RegistrySources.Sorted() {
			aliases = append(aliases, entry.Alias)
		}
		return aliases
	}
	require.Equal(t, []string{"zeta", "alpha"}, order(cfg))

	require.NoError(t, cfg.Save())
	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, order(reloaded), "tie-break order must survive a save/reload cycle")
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantErr     bool
		wantWarning bool
	}{
		{"https with index", "https://registry.example.com/index.json", false, false},
		{"http with index", "http://registry.example.com/index.json", false, false},
		{"file scheme", "file:///srv/registry/index.json", false, false},
		{"unsupported scheme", "ftp://registry.example.com/index.json", true, false},
		{"https without host", "https:///index.json", true, false},
		{"path without index filename", "https://registry.example.com/registry", false, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			warning, err := ValidateSourceURL(test.url)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.wantWarning, warning != "")
		})
	}
}

func TestAddSourcePersists(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"default_registry_url": "https://registry.example.com/index.json"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	warning, err := cfg.AddSource("mycompany", "https://internal.example.com/index.json", 10)
	require.NoError(t, err)
	assert.Empty(t, warning)

	reloaded, err := Load(dir)
	require.NoError(t, err)
	entry, ok := reloaded.RegistrySources.Get("mycompany")
	require.True(t, ok)
	assert.Equal(t, 10, entry.Priority)
	assert.True(t, entry.Enabled)
}

func TestRemoveSource(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  "registry_sources": {
    "one": "https://one.example.com/index.json",
    "two": "https://two.example.com/index.json"
  }
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	t.Run("unknown alias fails", func(t *testing.T) {
		err := cfg.RemoveSource("nope")
		assert.Error(t, err)
		assert.Equal(t, 2, cfg.RegistrySources.Len())
	})

	t.Run("removes an existing alias", func(t *testing.T) {
		err := cfg.RemoveSource("two")
		assert.NoError(t, err)
		assert.Equal(t, 1, cfg.RegistrySources.Len())
	})

	t.Run("last remaining source cannot be removed", func(t *testing.T) {
		err := cfg.RemoveSource("one")
		assert.Error(t, err)
		assert.Equal(t, 1, cfg.RegistrySources.Len())

		reloaded, err := Load(dir)
		require.NoError(t, err)
		_, ok := reloaded.RegistrySources.Get("one")
		assert.True(t, ok)
	})
}
