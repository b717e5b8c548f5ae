package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"runtime/debug"
	"strings"
	"time"

	"github.com/agentuity/go-common/logger"
	"github.com/cenk/backoff"
	"github.com/funcn-ai/funcn/internal/config"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	requestTimeout  = 30 * time.Second
	maxFetchRetries = 2
	maxPayloadSize  = 10 * 1024 * 1024 // 10MB
)

func userAgent() string {
	gitSHA := Commit
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				gitSHA = setting.Value
			}
		}
	}
	return "Funcn CLI/" + Version + " (" + gitSHA + ")"
}

// Fetcher retrieves registry indexes for the configured sources, honoring
// the cache store and source priority order. A nil cache disables caching
// entirely. Fetches are sequential; a broken source never blocks the others.
type Fetcher struct {
	ctx     context.Context
	logger  logger.Logger
	sources *config.SourceMap
	cache   *CacheStore
	client  *http.Client
}

func NewFetcher(ctx context.Context, logger logger.Logger, sources *config.SourceMap, cache *CacheStore) *Fetcher {
	return &Fetcher{
		ctx:     ctx,
		logger:  logger,
		sources: sources,
		cache:   cache,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// IndexURL returns the full index URL for a source, appending the index
// filename when the configured URL does not already end in it.
func IndexURL(sourceURL string) string {
	if strings.HasSuffix(sourceURL, config.IndexFilename) {
		return sourceURL
	}
	return strings.TrimSuffix(sourceURL, "/") + "/" + config.IndexFilename
}

// ResolveReference resolves a path relative to the document at baseURL, so a
// manifest_path of "agent/component.json" against an index at
// "https://host/reg/index.json" yields "https://host/reg/agent/component.json".
func ResolveReference(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return base.ResolveReference(rel).String(), nil
}

// FetchAll fetches the index of every enabled source in ascending priority
// order. With silentErrors, a failing source is logged, dropped from the
// result, and the remaining sources are still attempted; otherwise the first
// failure aborts the whole call. All enabled sources are always consulted
// (aggregation across registries, not first-success fallback).
func (f *Fetcher) FetchAll(silentErrors bool) (map[string]*RegistryIndex, error) {
	result := make(map[string]*RegistryIndex)
	for _, source := range f.sources.SortedEnabled() {
		index, err := f.fetchSource(source)
		if err != nil {
			if silentErrors {
				f.logger.Debug("skipping source %s: %s", source.Alias, err)
				continue
			}
			return nil, err
		}
		result[source.Alias] = index
	}
	return result, nil
}

// FetchIndex fetches the index for one named source, enabled or not. Used
// when the user pins --source.
func (f *Fetcher) FetchIndex(alias string) (*RegistryIndex, error) {
	source, ok := f.sources.Get(alias)
	if !ok {
		return nil, fmt.Errorf("no source configured with alias %q", alias)
	}
	return f.fetchSource(source)
}

func (f *Fetcher) fetchSource(source *config.SourceEntry) (*RegistryIndex, error) {
	indexURL := IndexURL(source.URL)

	if f.cache != nil {
		if entry := f.cache.Get(source.Alias); entry != nil {
			f.logger.Trace("cache hit for source %s", source.Alias)
			return ParseIndex(source.Alias, entry.Payload)
		}
	}

	var etag string
	var stale *CacheEntry
	if f.cache != nil {
		if stale = f.cache.GetAny(source.Alias); stale != nil {
			etag = stale.ETag
		}
	}

	payload, newETag, notModified, err := f.fetchPayload(indexURL, etag)
	if err != nil {
		return nil, WrapConnectivityError(source.Alias, indexURL, err)
	}

	if notModified && stale != nil {
		f.logger.Trace("source %s not modified, revalidated cached payload", source.Alias)
		if err := f.cache.Touch(source.Alias); err != nil {
			f.logger.Debug("%s", err)
		}
		return ParseIndex(source.Alias, stale.Payload)
	}

	index, err := ParseIndex(source.Alias, payload)
	if err != nil {
		return nil, err
	}
	if index.RegistrySemver() == nil {
		f.logger.Debug("source %s reports non-semver registry_version %q", source.Alias, index.RegistryVersion)
	}
	if f.cache != nil {
		if err := f.cache.Put(source.Alias, payload, newETag); err != nil {
			// non-fatal: treated as a cache miss next time
			f.logger.Debug("%s", err)
		}
	}
	return index, nil
}

// FetchBytes retrieves an arbitrary document (manifest or component file)
// from an http(s) or file URL. These fetches are not cached.
func (f *Fetcher) FetchBytes(rawURL string) ([]byte, error) {
	payload, _, _, err := f.fetchPayload(rawURL, "")
	return payload, err
}

func (f *Fetcher) fetchPayload(rawURL, etag string) (payload []byte, newETag string, notModified bool, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", false, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme == "file" {
		buf, err := os.ReadFile(fileURLPath(u))
		if err != nil {
			return nil, "", false, err
		}
		return buf, "", false, nil
	}

	op := func() error {
		payload, newETag, notModified, err = f.doFetch(rawURL, etag)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxFetchRetries), f.ctx)
	if retryErr := backoff.Retry(op, b); retryErr != nil {
		if perm, ok := retryErr.(*backoff.PermanentError); ok {
			return nil, "", false, perm.Err
		}
		return nil, "", false, retryErr
	}
	return payload, newETag, notModified, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

type transientError struct {
	cause error
}

func (e *transientError) Error() string { return e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}

func (f *Fetcher) doFetch(rawURL, etag string) (payload []byte, newETag string, notModified bool, err error) {
	req, err := http.NewRequestWithContext(f.ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", false, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	f.logger.Trace("sending request: GET %s", rawURL)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", false, &transientError{fmt.Errorf("error sending request: %w", err)}
	}
	defer resp.Body.Close()
	f.logger.Debug("response status: %s for %s", resp.Status, rawURL)

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, "", true, nil
	case resp.StatusCode == http.StatusOK:
		buf, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
		if err != nil {
			return nil, "", false, fmt.Errorf("error reading response body: %w", err)
		}
		return buf, resp.Header.Get("ETag"), false, nil
	case resp.StatusCode >= 500:
		return nil, "", false, &transientError{fmt.Errorf("request failed with status (%s)", resp.Status)}
	default:
		return nil, "", false, fmt.Errorf("request failed with status (%s)", resp.Status)
	}
}

// fileURLPath converts a file:// URL to a local path.
func fileURLPath(u *url.URL) string {
	p := u.Path
	if u.Host != "" {
		p = path.Join(u.Host, p)
	}
	return p
}
