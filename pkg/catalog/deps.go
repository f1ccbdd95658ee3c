package catalog

import (
	"strings"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// ModuleClosure computes the transitive module-dependency closure of one
// module. The result contains every module reachable through ".deps" edges,
// excluding the starting module itself.
//
// The walk is depth-first with path-based cycle detection: revisiting a
// module already on the current path fails with CYCLIC_DEPENDENCY carrying
// the path. Modules reachable through several branches are simply revisited;
// at catalog scale the simplicity is worth the repeated work.
//
// Dependencies on the external allow-list (nil selects [DefaultExternals])
// terminate the walk as satisfied leaves without a catalog lookup. Any other
// dependency that the catalog does not define fails with UNKNOWN_MODULE.
func (c *Catalog) ModuleClosure(key ModuleKey, external ExternalSet) (map[ModuleKey]bool, error) {
	if external == nil {
		external = DefaultExternals()
	}
	if _, ok := c.modules[key]; !ok {
		return nil, errors.New(errors.ErrCodeUnknownModule, "unknown module %s", key)
	}
	result := make(map[ModuleKey]bool)
	if err := c.moduleClosure(key, external, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Catalog) moduleClosure(key ModuleKey, external ExternalSet, path []ModuleKey, result map[ModuleKey]bool) error {
	mod, ok := c.modules[key]
	if !ok {
		return errors.New(errors.ErrCodeUnknownModule,
			"unknown module %s in dependency chain %s", key, formatPath(path))
	}
	if len(mod.Deps) == 0 {
		for _, p := range path {
			result[p] = true
		}
		return nil
	}
	for _, raw := range mod.Deps {
		dep, err := ParseModuleKey(raw)
		if err != nil {
			return err
		}
		for _, p := range path {
			if p == dep {
				return errors.New(errors.ErrCodeCyclicDependency,
					"cyclic module dependency: %s -> %s", formatPath(path), dep)
			}
		}
		path = append(path, dep)
		if external[dep] {
			// Externals are satisfied by the platform; the chain ends here.
			for _, p := range path {
				result[p] = true
			}
		} else if err := c.moduleClosure(dep, external, path, result); err != nil {
			return err
		}
		path = path[:len(path)-1]
	}
	return nil
}

func formatPath(path []ModuleKey) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = p.String()
	}
	return strings.Join(parts, " -> ")
}

// CheckClosureEnabled verifies enabled-module completeness: every dependency
// of every enabled module must itself be enabled in some library, except
// modules on the external allow-list (nil selects [DefaultExternals]).
//
// byLib maps each library to its enabled modules with their dependency
// closures. Fails with DISABLED_DEPENDENCY naming both modules.
func CheckClosureEnabled(byLib map[string]map[ModuleKey][]ModuleKey, external ExternalSet) error {
	if external == nil {
		external = DefaultExternals()
	}
	enabled := make(map[ModuleKey]bool)
	for _, mods := range byLib {
		for key := range mods {
			enabled[key] = true
		}
	}
	for _, mods := range byLib {
		for key, deps := range mods {
			for _, dep := range deps {
				if external[dep] {
					continue
				}
				if !enabled[dep] {
					return errors.New(errors.ErrCodeDisabledDependency,
						"%s depends on %s, but %s is disabled", key, dep, dep)
				}
			}
		}
	}
	return nil
}
