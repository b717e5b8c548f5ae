package registry

import (
	"github.com/agentuity/go-common/logger"
)

// Walker expands a manifest's registry_dependencies into a deduplicated,
// cycle-safe install plan. The walk is depth-first over dependency names;
// each name appears exactly once in first-discovery order, and the requested
// component lands last unless some dependency chain pulled it in earlier.
// Dependencies are NOT guaranteed to precede their dependents.
type Walker struct {
	logger      logger.Logger
	resolver    *Resolver
	sourceAlias string
}

func NewWalker(logger logger.Logger, resolver *Resolver, sourceAlias string) *Walker {
	return &Walker{logger: logger, resolver: resolver, sourceAlias: sourceAlias}
}

// Plan builds the ordered install plan for root and its transitive registry
// dependencies. A dependency that cannot be resolved aborts the whole plan.
func (w *Walker) Plan(root *ComponentManifest) ([]*ComponentManifest, error) {
	visited := map[string]bool{}
	var plan []*ComponentManifest

	var walk func(m *ComponentManifest) error
	walk = func(m *ComponentManifest) error {
		for _, dep := range m.RegistryDependencies {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			w.logger.Debug("resolving dependency %s (required by %s)", dep, m.Name)
			dm, err := w.resolver.Resolve(dep, w.sourceAlias)
			if err != nil {
				return WrapDependencyError(dep, m.Name, err)
			}
			plan = append(plan, dm)
			if err := walk(dm); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	if !visited[root.Name] {
		plan = append(plan, root)
	}
	return plan, nil
}
