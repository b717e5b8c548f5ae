package installer

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/agentuity/go-common/logger"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/funcn-ai/funcn/internal/config"
	"github.com/funcn-ai/funcn/internal/registry"
	"github.com/funcn-ai/funcn/internal/template"
	"github.com/funcn-ai/funcn/internal/util"
)

// Materializer copies a manifest's declared files into the project's target
// directory for its component type, rendering each file through the template
// engine on the way.
type Materializer struct {
	logger  logger.Logger
	fetcher *registry.Fetcher
	cfg     *config.Config
}

func NewMaterializer(logger logger.Logger, fetcher *registry.Fetcher, cfg *config.Config) *Materializer {
	return &Materializer{logger: logger, fetcher: fetcher, cfg: cfg}
}

// TargetDir resolves the directory a manifest's files land in, without
// creating it.
func (m *Materializer) TargetDir(manifest *registry.ComponentManifest) (string, error) {
	base, ok := m.cfg.ComponentPaths[manifest.TargetDirectoryKey]
	if !ok {
		return "", fmt.Errorf("no component path configured for target_directory_key %q", manifest.TargetDirectoryKey)
	}
	return filepath.Join(m.cfg.Dir(), base, util.SafeFilename(manifest.Name)), nil
}

// Materialize writes the manifest's files under its target directory. The
// destination directory must not already exist unless force is set; the
// existence check happens before anything is written.
func (m *Materializer) Materialize(manifest *registry.ComponentManifest, variables map[string]string, withLilypad, force bool) error {
	destDir, err := m.TargetDir(manifest)
	if err != nil {
		return err
	}
	if util.Dir(destDir) && !force {
		return &registry.AlreadyExistsError{Component: manifest.Name, Path: destDir}
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", destDir, err)
	}

	lilypad := withLilypad && manifest.SupportsLilypad
	for _, mapping := range m.expandMappings(manifest) {
		if err := m.materializeFile(manifest, mapping, destDir, variables, lilypad); err != nil {
			return err
		}
	}
	m.logger.Debug("materialized %s into %s", manifest.Name, destDir)
	return nil
}

// expandMappings resolves glob sources. Globs only expand for manifests
// served from the local filesystem; over HTTP there is no listing to match
// against, so the mapping passes through literally.
func (m *Materializer) expandMappings(manifest *registry.ComponentManifest) []registry.FileMapping {
	var out []registry.FileMapping
	baseDir, local := manifestDir(manifest.BaseURL)
	for _, mapping := range manifest.FilesToCopy {
		if !local || !hasGlobMeta(mapping.Source) {
			out = append(out, mapping)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(baseDir), mapping.Source)
		if err != nil || len(matches) == 0 {
			m.logger.Debug("glob %s matched nothing for %s", mapping.Source, manifest.Name)
			out = append(out, mapping)
			continue
		}
		for _, match := range matches {
			out = append(out, registry.FileMapping{
				Source:      match,
				Destination: filepath.Join(mapping.Destination, filepath.Base(match)),
			})
		}
	}
	return out
}

func hasGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// manifestDir returns the local directory containing the manifest when its
// base URL uses the file scheme.
func manifestDir(baseURL string) (string, bool) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	p := u.Path
	if u.Host != "" {
		p = filepath.Join(u.Host, p)
	}
	return filepath.Dir(p), true
}

func (m *Materializer) materializeFile(manifest *registry.ComponentManifest, mapping registry.FileMapping, destDir string, variables map[string]string, lilypad bool) error {
	sourceURL, err := registry.ResolveReference(manifest.BaseURL, mapping.Source)
	if err != nil {
		return err
	}
	buf, err := m.fetcher.FetchBytes(sourceURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s for %s: %w", mapping.Source, manifest.Name, err)
	}

	rendered := template.Render(string(buf), variables, lilypad)

	target := filepath.Join(destDir, mapping.Destination)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}
	if err := os.WriteFile(target, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	m.logger.Trace("wrote %s", target)
	return nil
}
