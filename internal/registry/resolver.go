package registry

import (
	"net/url"
	"strings"

	"github.com/agentuity/go-common/logger"
	"github.com/funcn-ai/funcn/internal/config"
)

// Resolver locates the manifest for a user-supplied identifier: either a
// component name looked up across the aggregated indexes, or a direct
// manifest URL fetched as-is.
type Resolver struct {
	logger  logger.Logger
	fetcher *Fetcher
	sources *config.SourceMap
}

func NewResolver(logger logger.Logger, fetcher *Fetcher, sources *config.SourceMap) *Resolver {
	return &Resolver{logger: logger, fetcher: fetcher, sources: sources}
}

// IsManifestURL returns true when the identifier is an absolute http(s) or
// file URL pointing at a manifest document.
func IsManifestURL(identifier string) bool {
	u, err := url.Parse(identifier)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "file":
	default:
		return false
	}
	return strings.HasSuffix(u.Path, ".json")
}

// Resolve returns the manifest for identifier. When sourceAlias is non-empty
// only that source's index is consulted; otherwise all enabled sources are
// aggregated and, for names exposed by several sources, the source earliest
// in priority order wins.
func (r *Resolver) Resolve(identifier, sourceAlias string) (*ComponentManifest, error) {
	if IsManifestURL(identifier) {
		r.logger.Debug("resolving %s as a direct manifest URL", identifier)
		payload, err := r.fetcher.FetchBytes(identifier)
		if err != nil {
			return nil, WrapConnectivityError("", identifier, err)
		}
		manifest, err := ParseManifest(identifier, payload)
		if err != nil {
			return nil, err
		}
		manifest.BaseURL = identifier
		return manifest, nil
	}

	indexes, order, err := r.fetchIndexes(sourceAlias)
	if err != nil {
		return nil, err
	}

	for _, source := range order {
		index, ok := indexes[source.Alias]
		if !ok {
			continue
		}
		for _, summary := range index.Components {
			if summary.Name != identifier {
				continue
			}
			r.logger.Debug("found %s in source %s (%s)", identifier, source.Alias, summary.ManifestPath)
			return r.fetchManifest(source, summary)
		}
	}
	return nil, &ComponentNotFoundError{Identifier: identifier}
}

// fetchIndexes returns the aggregated indexes plus the priority-ordered
// source list to scan them in.
func (r *Resolver) fetchIndexes(sourceAlias string) (map[string]*RegistryIndex, []*config.SourceEntry, error) {
	if sourceAlias != "" {
		index, err := r.fetcher.FetchIndex(sourceAlias)
		if err != nil {
			return nil, nil, err
		}
		source, _ := r.sources.Get(sourceAlias)
		return map[string]*RegistryIndex{sourceAlias: index}, []*config.SourceEntry{source}, nil
	}
	indexes, err := r.fetcher.FetchAll(true)
	if err != nil {
		return nil, nil, err
	}
	return indexes, r.sources.SortedEnabled(), nil
}

func (r *Resolver) fetchManifest(source *config.SourceEntry, summary ComponentSummary) (*ComponentManifest, error) {
	manifestURL, err := ResolveReference(IndexURL(source.URL), summary.ManifestPath)
	if err != nil {
		return nil, err
	}
	payload, err := r.fetcher.FetchBytes(manifestURL)
	if err != nil {
		return nil, WrapConnectivityError(source.Alias, manifestURL, err)
	}
	manifest, err := ParseManifest(manifestURL, payload)
	if err != nil {
		return nil, err
	}
	manifest.SourceAlias = source.Alias
	manifest.BaseURL = manifestURL
	return manifest, nil
}
