package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver"
	"github.com/funcn-ai/funcn/internal/registry"
	"github.com/funcn-ai/funcn/internal/util"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// LockFilename is the per-project record of installed components.
const LockFilename = "funcn-lock.yaml"

type LockRecord struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Version     string    `yaml:"version"`
	Type        string    `yaml:"type"`
	Source      string    `yaml:"source,omitempty"`
	InstalledAt time.Time `yaml:"installed_at"`
}

type Lockfile struct {
	Components []LockRecord `yaml:"components"`

	dir string
}

func lockPath(dir string) string {
	return filepath.Join(dir, LockFilename)
}

// LoadLockfile reads the project lockfile, returning an empty lockfile when
// none exists yet.
func LoadLockfile(dir string) (*Lockfile, error) {
	lf := &Lockfile{dir: dir}
	fn := lockPath(dir)
	if !util.Exists(fn) {
		return lf, nil
	}
	of, err := os.Open(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fn, err)
	}
	defer of.Close()
	if err := yaml.NewDecoder(of).Decode(lf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fn, err)
	}
	return lf, nil
}

func (l *Lockfile) Save() error {
	fn := lockPath(l.dir)
	of, err := os.Create(fn)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", fn, err)
	}
	defer of.Close()
	enc := yaml.NewEncoder(of)
	enc.SetIndent(2)
	return enc.Encode(l)
}

// Find returns the record for a component name, or nil.
func (l *Lockfile) Find(name string) *LockRecord {
	for i := range l.Components {
		if l.Components[i].Name == name {
			return &l.Components[i]
		}
	}
	return nil
}

// HasCurrent reports whether name is already recorded at the same or a newer
// semver version. Loose (non-semver) versions only match on equality.
func (l *Lockfile) HasCurrent(name, version string) bool {
	rec := l.Find(name)
	if rec == nil {
		return false
	}
	have, err1 := semver.NewVersion(rec.Version)
	want, err2 := semver.NewVersion(version)
	if err1 != nil || err2 != nil {
		return rec.Version == version
	}
	return !have.LessThan(want)
}

// Record adds or replaces the entry for an installed manifest.
func (l *Lockfile) Record(manifest *registry.ComponentManifest) {
	rec := LockRecord{
		ID:          uuid.NewString(),
		Name:        manifest.Name,
		Version:     manifest.Version,
		Type:        string(manifest.Type),
		Source:      manifest.SourceAlias,
		InstalledAt: time.Now(),
	}
	for i := range l.Components {
		if l.Components[i].Name == manifest.Name {
			rec.ID = l.Components[i].ID
			l.Components[i] = rec
			return
		}
	}
	l.Components = append(l.Components, rec)
}
