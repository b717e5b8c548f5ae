package installer

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentuity/go-common/logger"
	"github.com/funcn-ai/funcn/internal/config"
	"github.com/funcn-ai/funcn/internal/registry"
	"github.com/joho/godotenv"
)

// Options carries the user's choices for one add invocation.
type Options struct {
	Identifier  string
	Provider    string
	Model       string
	WithLilypad bool
	Stream      bool
	SourceAlias string
	Force       bool

	// Variables are user-supplied overrides applied over manifest defaults.
	Variables map[string]string
}

// EnvReport is one required or documented environment variable across the
// install plan, with whether the project already satisfies it.
type EnvReport struct {
	Name        string
	Description string
	Required    bool
	Set         bool
}

// Result summarizes a completed install for the command layer to print.
type Result struct {
	Installed            []*registry.ComponentManifest
	AlreadyCurrent       []string
	PythonDependencies   []string
	EnvironmentVariables []EnvReport
}

// Orchestrator coordinates one add operation end to end: resolve the
// identifier, expand the dependency plan, materialize every planned
// component, and report what the user still has to satisfy by hand.
// Components materialized before a later failure stay in place; there is no
// rollback.
type Orchestrator struct {
	logger       logger.Logger
	cfg          *config.Config
	resolver     *registry.Resolver
	materializer *Materializer
}

// New wires up the full engine for one command invocation. The cache store
// is only engaged when the project config enables caching.
func New(ctx context.Context, log logger.Logger, cfg *config.Config, cacheDir string) *Orchestrator {
	var cache *registry.CacheStore
	if cfg.CacheConfig.Enabled {
		cache = registry.NewCacheStore(cacheDir, cfg.CacheConfig.TTLSeconds)
	}
	fetcher := registry.NewFetcher(ctx, log, cfg.RegistrySources, cache)
	return &Orchestrator{
		logger:       log,
		cfg:          cfg,
		resolver:     registry.NewResolver(log, fetcher, cfg.RegistrySources),
		materializer: NewMaterializer(log, fetcher, cfg),
	}
}

// AddComponent resolves the identifier, builds the install plan, and
// materializes it in plan order.
func (o *Orchestrator) AddComponent(opts Options) (*Result, error) {
	root, err := o.resolver.Resolve(opts.Identifier, opts.SourceAlias)
	if err != nil {
		return nil, err
	}

	walker := registry.NewWalker(o.logger, o.resolver, opts.SourceAlias)
	plan, err := walker.Plan(root)
	if err != nil {
		return nil, err
	}

	lockfile, err := LoadLockfile(o.cfg.Dir())
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, manifest := range plan {
		if lockfile.HasCurrent(manifest.Name, manifest.Version) {
			result.AlreadyCurrent = append(result.AlreadyCurrent, manifest.Name)
		}
		variables := o.mergeVariables(manifest, opts)
		if err := o.materializer.Materialize(manifest, variables, opts.WithLilypad, opts.Force); err != nil {
			return nil, err
		}
		lockfile.Record(manifest)
		result.Installed = append(result.Installed, manifest)
	}

	if err := lockfile.Save(); err != nil {
		return nil, err
	}

	result.PythonDependencies = aggregateDependencies(plan)
	result.EnvironmentVariables = o.aggregateEnvVars(plan)
	return result, nil
}

// mergeVariables layers, lowest precedence first: manifest defaults, the
// provider/model/stream preferences, then explicit user overrides.
func (o *Orchestrator) mergeVariables(manifest *registry.ComponentManifest, opts Options) map[string]string {
	variables := manifest.DefaultVariables()
	if opts.Provider != "" {
		variables["provider"] = opts.Provider
	}
	if opts.Model != "" {
		variables["model"] = opts.Model
	}
	if opts.Stream {
		variables["stream"] = "true"
	} else {
		variables["stream"] = "false"
	}
	for k, v := range opts.Variables {
		variables[k] = v
	}
	return variables
}

func aggregateDependencies(plan []*registry.ComponentManifest) []string {
	seen := map[string]bool{}
	var deps []string
	for _, manifest := range plan {
		for _, dep := range manifest.PythonDependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
		}
	}
	sort.Strings(deps)
	return deps
}

// aggregateEnvVars collects the environment variables across the plan and
// marks each one set when present in the process environment or the
// project's .env file.
func (o *Orchestrator) aggregateEnvVars(plan []*registry.ComponentManifest) []EnvReport {
	dotenv, err := godotenv.Read(filepath.Join(o.cfg.Dir(), ".env"))
	if err != nil {
		dotenv = nil
	}
	seen := map[string]bool{}
	var reports []EnvReport
	for _, manifest := range plan {
		for _, ev := range manifest.EnvironmentVariables {
			if seen[ev.Name] {
				continue
			}
			seen[ev.Name] = true
			_, inDotenv := dotenv[ev.Name]
			_, inEnv := os.LookupEnv(ev.Name)
			reports = append(reports, EnvReport{
				Name:        ev.Name,
				Description: ev.Description,
				Required:    ev.Required,
				Set:         inEnv || inDotenv,
			})
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name < reports[j].Name })
	return reports
}
