package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funcn-ai/funcn/internal/util"
	"github.com/marcozac/go-jsonc"
)

const (
	// Filename is the project configuration file funcn looks for at the
	// project root.
	Filename = "funcn.json"

	// IndexFilename is the index document every registry source is expected
	// to serve.
	IndexFilename = "index.json"

	// DefaultSourceAlias is the alias given to the source synthesized from
	// default_registry_url when no sources are configured explicitly.
	DefaultSourceAlias = "default"

	// DefaultPriority is assigned to sources that do not declare one. Lower
	// values are consulted first.
	DefaultPriority = 100

	DefaultCacheTTLSeconds = 3600
)

// SourceEntry is the normalized form of a configured registry source. The
// config file accepts either this shape or a legacy bare URL string; both are
// normalized at load time so downstream code only ever sees this struct.
type SourceEntry struct {
	Alias    string `json:"-"`
	URL      string `json:"url"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// IsDefault returns true if this entry is the synthesized default source.
func (s SourceEntry) IsDefault() bool {
	return s.Alias == DefaultSourceAlias
}

type rawSourceEntry struct {
	URL      string `json:"url"`
	Priority *int   `json:"priority"`
	Enabled  *bool  `json:"enabled"`
}

// SourceMap holds registry sources keyed by alias while remembering the key
// order of the underlying JSON object, since encoding/json map decoding
// discards it.
type SourceMap struct {
	entries map[string]*SourceEntry
	order   []string
}

func NewSourceMap() *SourceMap {
	return &SourceMap{entries: make(map[string]*SourceEntry)}
}

func (m *SourceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

func (m *SourceMap) Get(alias string) (*SourceEntry, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.entries[alias]
	return e, ok
}

func (m *SourceMap) Set(alias string, entry *SourceEntry) {
	if _, ok := m.entries[alias]; !ok {
		m.order = append(m.order, alias)
	}
	entry.Alias = alias
	m.entries[alias] = entry
}

func (m *SourceMap) Delete(alias string) {
	if _, ok := m.entries[alias]; !ok {
		return
	}
	delete(m.entries, alias)
	m.order = deleteFrom(m.order, alias)
}

func deleteFrom(list []string, val string) []string {
	out := list[:0]
	for _, v := range list {
		if v != val {
			out = append(out, v)
		}
	}
	return out
}

// UnmarshalJSON decodes a registry_sources object, accepting both the bare
// URL string form and the full object form for each alias, and records the
// order aliases appear in the document.
func (m *SourceMap) UnmarshalJSON(buf []byte) error {
	m.entries = make(map[string]*SourceEntry)
	m.order = nil

	dec := json.NewDecoder(bytes.NewReader(buf))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("registry_sources must be an object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		alias := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		entry, err := normalizeSource(alias, raw)
		if err != nil {
			return err
		}
		m.Set(alias, entry)
	}
	_, err = dec.Token() // closing brace
	return err
}

// MarshalJSON emits aliases in the same order they were loaded or added, so
// rewriting the config never changes which source wins a priority tie.
func (m *SourceMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, alias := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(alias)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.entries[alias])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func normalizeSource(alias string, raw json.RawMessage) (*SourceEntry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		// legacy form: a bare URL string
		var u string
		if err := json.Unmarshal(trimmed, &u); err != nil {
			return nil, err
		}
		return &SourceEntry{Alias: alias, URL: u, Priority: DefaultPriority, Enabled: true}, nil
	}
	var re rawSourceEntry
	if err := json.Unmarshal(trimmed, &re); err != nil {
		return nil, fmt.Errorf("invalid source entry for %s: %w", alias, err)
	}
	entry := &SourceEntry{Alias: alias, URL: re.URL, Priority: DefaultPriority, Enabled: true}
	if re.Priority != nil {
		entry.Priority = *re.Priority
	}
	if re.Enabled != nil {
		entry.Enabled = *re.Enabled
	}
	return entry, nil
}

// Sorted returns all entries ordered ascending by priority, ties broken by
// the order they appear in the config file. Negative priorities sort before
// zero and positive values.
func (m *SourceMap) Sorted() []*SourceEntry {
	if m == nil {
		return nil
	}
	out := make([]*SourceEntry, 0, len(m.entries))
	for _, alias := range m.order {
		out = append(out, m.entries[alias])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// SortedEnabled returns Sorted filtered down to enabled sources.
func (m *SourceMap) SortedEnabled() []*SourceEntry {
	var out []*SourceEntry
	for _, entry := range m.Sorted() {
		if entry.Enabled {
			out = append(out, entry)
		}
	}
	return out
}

// CacheConfig controls the on-disk index cache. When Enabled is false every
// fetch bypasses the cache entirely.
type CacheConfig struct {
	Enabled    bool  `json:"enabled"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

// Config is the funcn.json project configuration.
type Config struct {
	DefaultRegistryURL string            `json:"default_registry_url,omitempty"`
	RegistrySources    *SourceMap        `json:"registry_sources,omitempty"`
	ComponentPaths     map[string]string `json:"component_paths,omitempty"`
	CacheConfig        *CacheConfig      `json:"cache_config,omitempty"`

	dir string
}

func getFilename(dir string) string {
	return filepath.Join(dir, Filename)
}

// ProjectExists returns true if a funcn.json exists in the given directory.
func ProjectExists(dir string) bool {
	return util.Exists(getFilename(dir))
}

// DefaultComponentPaths maps every component type to its default target
// directory relative to the project root.
func DefaultComponentPaths() map[string]string {
	return map[string]string{
		"agent":           "src/agents",
		"tool":            "src/tools",
		"prompt_template": "src/prompts",
		"response_model":  "src/response_models",
		"eval":            "src/evals",
		"example":         "src/examples",
	}
}

// Load reads and normalizes the project configuration from dir. The file may
// contain comments (JSONC). A config with no registry_sources but a
// default_registry_url gets a synthesized "default" source so at least one
// source is always configured.
func Load(dir string) (*Config, error) {
	fn := getFilename(dir)
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fn, err)
	}
	var cfg Config
	if err := jsonc.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fn, err)
	}
	cfg.dir = dir
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.RegistrySources == nil {
		c.RegistrySources = NewSourceMap()
	}
	if c.RegistrySources.Len() == 0 && c.DefaultRegistryURL != "" {
		c.RegistrySources.Set(DefaultSourceAlias, &SourceEntry{
			URL:      c.DefaultRegistryURL,
			Priority: DefaultPriority,
			Enabled:  true,
		})
	}
	if c.ComponentPaths == nil {
		c.ComponentPaths = DefaultComponentPaths()
	}
	if c.CacheConfig == nil {
		c.CacheConfig = &CacheConfig{Enabled: true, TTLSeconds: DefaultCacheTTLSeconds}
	}
	if c.CacheConfig.TTLSeconds <= 0 {
		c.CacheConfig.TTLSeconds = DefaultCacheTTLSeconds
	}
}

// Dir returns the project root this configuration was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// Save writes the configuration back to the project root as plain JSON.
// Comments accepted by Load are not preserved across a rewrite.
func (c *Config) Save() error {
	buf, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fn := getFilename(c.dir)
	if err := os.WriteFile(fn, append(buf, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", fn, err)
	}
	return nil
}

// ValidateSourceURL checks that a registry source URL uses a supported scheme
// and, for network schemes, has a host. It returns a warning (not an error)
// when the path does not end in the expected index filename.
func ValidateSourceURL(rawURL string) (warning string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("URL %q has no host", rawURL)
		}
	case "file":
		// local file sources need no host
	default:
		return "", fmt.Errorf("unsupported URL scheme %q (must be http, https, or file)", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, IndexFilename) {
		warning = fmt.Sprintf("URL does not end in %s; the registry index may not be found at this location", IndexFilename)
	}
	return warning, nil
}

// AddSource validates and persists a new source entry. The returned warning,
// if any, should be shown to the user but does not block the add.
func (c *Config) AddSource(alias, rawURL string, priority int) (warning string, err error) {
	if alias == "" {
		return "", fmt.Errorf("source alias cannot be empty")
	}
	warning, err = ValidateSourceURL(rawURL)
	if err != nil {
		return "", err
	}
	c.RegistrySources.Set(alias, &SourceEntry{
		URL:      rawURL,
		Priority: priority,
		Enabled:  true,
	})
	if err := c.Save(); err != nil {
		return warning, err
	}
	return warning, nil
}

// RemoveSource deletes a source. It refuses to remove an unknown alias or the
// last remaining source, leaving the config untouched in both cases.
func (c *Config) RemoveSource(alias string) error {
	if _, ok := c.RegistrySources.Get(alias); !ok {
		return fmt.Errorf("no source configured with alias %q", alias)
	}
	if c.RegistrySources.Len() == 1 {
		return fmt.Errorf("cannot remove %q: it is the only configured source", alias)
	}
	c.RegistrySources.Delete(alias)
	return c.Save()
}
