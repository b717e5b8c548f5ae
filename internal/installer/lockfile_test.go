package installer

import (
	"testing"

	"github.com/funcn-ai/funcn/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLockfileMissing(t *testing.T) {
	lf, err := LoadLockfile(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, lf.Components)
}

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lf, err := LoadLockfile(dir)
	require.NoError(t, err)

	lf.Record(&registry.ComponentManifest{
		Name:        "web_search",
		Version:     "1.2.0",
		Type:        registry.ComponentTypeTool,
		SourceAlias: "default",
	})
	require.NoError(t, lf.Save())

	reloaded, err := LoadLockfile(dir)
	require.NoError(t, err)
	require.Len(t, reloaded.Components, 1)

	rec := reloaded.Find("web_search")
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "1.2.0", rec.Version)
	assert.Equal(t, "tool", rec.Type)
	assert.Equal(t, "default", rec.Source)
	assert.False(t, rec.InstalledAt.IsZero())
}

func TestLockfileRecordReplacePreservesID(t *testing.T) {
	lf := &Lockfile{}
	lf.Record(&registry.ComponentManifest{Name: "web_search", Version: "1.0.0", Type: registry.ComponentTypeTool})
	firstID := lf.Components[0].ID

	lf.Record(&registry.ComponentManifest{Name: "web_search", Version: "2.0.0", Type: registry.ComponentTypeTool})
	require.Len(t, lf.Components, 1)
	assert.Equal(t, firstID, lf.Components[0].ID)
	assert.Equal(t, "2.0.0", lf.Components[0].Version)
}

func TestLockfileHasCurrent(t *testing.T) {
	lf := &Lockfile{}
	lf.Record(&registry.ComponentManifest{Name: "web_search", Version: "1.2.0", Type: registry.ComponentTypeTool})
	lf.Record(&registry.ComponentManifest{Name: "nightly", Version: "build-2025-01-15", Type: registry.ComponentTypeTool})

	tests := []struct {
		name      string
		component string
		version   string
		want      bool
	}{
		{"not recorded", "pdf_search", "1.0.0", false},
		{"same version", "web_search", "1.2.0", true},
		{"older wanted", "web_search", "1.0.0", true},
		{"newer wanted", "web_search", "2.0.0", false},
		{"loose version match", "nightly", "build-2025-01-15", true},
		{"loose version mismatch", "nightly", "build-2025-02-01", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, lf.HasCurrent(test.component, test.version))
		})
	}
}
