package registry

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver"
)

// ComponentType enumerates the kinds of installable components a registry
// can serve.
type ComponentType string

const (
	ComponentTypeAgent          ComponentType = "agent"
	ComponentTypeTool           ComponentType = "tool"
	ComponentTypePromptTemplate ComponentType = "prompt_template"
	ComponentTypeResponseModel  ComponentType = "response_model"
	ComponentTypeEval           ComponentType = "eval"
	ComponentTypeExample        ComponentType = "example"
)

var componentTypes = map[ComponentType]bool{
	ComponentTypeAgent:          true,
	ComponentTypeTool:           true,
	ComponentTypePromptTemplate: true,
	ComponentTypeResponseModel:  true,
	ComponentTypeEval:           true,
	ComponentTypeExample:        true,
}

func (t ComponentType) Valid() bool {
	return componentTypes[t]
}

// ComponentSummary is one entry in a registry index.
type ComponentSummary struct {
	Name         string        `json:"name"`
	Type         ComponentType `json:"type"`
	Version      string        `json:"version"`
	Description  string        `json:"description"`
	ManifestPath string        `json:"manifest_path"`
}

// RegistryIndex is the machine-readable catalog a source serves at its URL.
type RegistryIndex struct {
	RegistryVersion string             `json:"registry_version"`
	UpdatedAt       string             `json:"updated_at,omitempty"`
	Components      []ComponentSummary `json:"components"`
}

// ParseIndex decodes and validates an index payload. A payload missing
// registry_version or components is rejected.
func ParseIndex(subject string, payload []byte) (*RegistryIndex, error) {
	var probe struct {
		RegistryVersion *string          `json:"registry_version"`
		Components      *json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, WrapValidationError(subject, []string{fmt.Sprintf("malformed JSON: %s", err)})
	}
	var issues []string
	if probe.RegistryVersion == nil || *probe.RegistryVersion == "" {
		issues = append(issues, "missing required field registry_version")
	}
	if probe.Components == nil {
		issues = append(issues, "missing required field components")
	}
	if len(issues) > 0 {
		return nil, WrapValidationError(subject, issues)
	}
	var index RegistryIndex
	if err := json.Unmarshal(payload, &index); err != nil {
		return nil, WrapValidationError(subject, []string{fmt.Sprintf("invalid index shape: %s", err)})
	}
	return &index, nil
}

// RegistrySemver returns the parsed registry_version, or nil if it is not a
// valid semantic version. Indexes with loose version strings are still
// accepted.
func (i *RegistryIndex) RegistrySemver() *semver.Version {
	v, err := semver.NewVersion(i.RegistryVersion)
	if err != nil {
		return nil
	}
	return v
}

// FileMapping declares one file a component ships, relative to the manifest
// location, and where it lands relative to the component's target directory.
type FileMapping struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// EnvironmentVariable documents an env var the installed component reads.
type EnvironmentVariable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// TemplateVariable documents a placeholder substituted at install time.
type TemplateVariable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     string `json:"default,omitempty"`
}

// ComponentManifest is the full per-component descriptor fetched from a
// summary's manifest_path.
type ComponentManifest struct {
	Name                 string                `json:"name"`
	Version              string                `json:"version"`
	Type                 ComponentType         `json:"type"`
	Description          string                `json:"description,omitempty"`
	Authors              []string              `json:"authors,omitempty"`
	License              string                `json:"license,omitempty"`
	FilesToCopy          []FileMapping         `json:"files_to_copy"`
	TargetDirectoryKey   string                `json:"target_directory_key"`
	PythonDependencies   []string              `json:"python_dependencies,omitempty"`
	RegistryDependencies []string              `json:"registry_dependencies,omitempty"`
	EnvironmentVariables []EnvironmentVariable `json:"environment_variables,omitempty"`
	TemplateVariables    []TemplateVariable    `json:"template_variables,omitempty"`
	SupportsLilypad      bool                  `json:"supports_lilypad,omitempty"`

	// SourceAlias records which registry source this manifest was resolved
	// from; empty for manifests fetched from a direct URL.
	SourceAlias string `json:"-"`

	// BaseURL is the URL the manifest was fetched from, used to resolve its
	// files_to_copy sources.
	BaseURL string `json:"-"`
}

// ParseManifest decodes and validates a component manifest payload, failing
// fast with a ValidationError at the deserialization boundary.
func ParseManifest(subject string, payload []byte) (*ComponentManifest, error) {
	var m ComponentManifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, WrapValidationError(subject, []string{fmt.Sprintf("malformed JSON: %s", err)})
	}
	var issues []string
	if m.Name == "" {
		issues = append(issues, "missing required field name")
	}
	if m.Version == "" {
		issues = append(issues, "missing required field version")
	}
	if m.Type == "" {
		issues = append(issues, "missing required field type")
	} else if !m.Type.Valid() {
		issues = append(issues, fmt.Sprintf("invalid component type %q", m.Type))
	}
	if m.TargetDirectoryKey == "" {
		issues = append(issues, "missing required field target_directory_key")
	}
	if len(m.FilesToCopy) == 0 {
		issues = append(issues, "manifest declares no files_to_copy")
	}
	for i, f := range m.FilesToCopy {
		if f.Source == "" || f.Destination == "" {
			issues = append(issues, fmt.Sprintf("files_to_copy[%d] must declare source and destination", i))
		}
	}
	if len(issues) > 0 {
		return nil, WrapValidationError(subject, issues)
	}
	return &m, nil
}

// Semver returns the parsed component version, or nil for loose versions.
func (m *ComponentManifest) Semver() *semver.Version {
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return nil
	}
	return v
}

// DefaultVariables returns the manifest's template variable defaults as a
// substitution map.
func (m *ComponentManifest) DefaultVariables() map[string]string {
	vars := make(map[string]string, len(m.TemplateVariables))
	for _, tv := range m.TemplateVariables {
		if tv.Default != "" {
			vars[tv.Name] = tv.Default
		}
	}
	return vars
}
