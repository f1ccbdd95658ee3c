package config

import (
	"sort"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// ModuleBuild describes how one enabled module is compiled: implementation
// kind, optional instruction set, and the module's dependency closure (kept
// for include-path derivation by the build-file generator).
type ModuleBuild struct {
	Kind           string
	InstructionSet string
	Deps           []catalog.ModuleKey
}

// EnabledModules derives the modules required to compile each configured
// library.
//
// Per library, every enabled c feature and assembly entry expands through
// [catalog.Catalog.FeatureModules]; each collected module gets its
// dependency closure attached (sorted, for determinism). A library that
// resolves to zero modules fails with EMPTY_LIBRARY. Finally, enabled-module
// completeness is verified across all libraries with
// [catalog.CheckClosureEnabled] (nil external selects the default
// allow-list).
func EnabledModules(cfg *Config, cat *catalog.Catalog, external catalog.ExternalSet) (map[string]map[catalog.ModuleKey]*ModuleBuild, error) {
	byLib := make(map[string]map[catalog.ModuleKey]*ModuleBuild)
	closures := make(map[string]map[catalog.ModuleKey][]catalog.ModuleKey)

	for _, lib := range cfg.LibOrder() {
		sel := cfg.Libs[lib]
		uses := make(map[catalog.ModuleKey]catalog.ModuleUse)
		for _, fea := range sel.C {
			if err := cat.FeatureModules(fea, catalog.KindC, "", uses); err != nil {
				return nil, err
			}
		}
		for _, entry := range sel.Asm {
			if err := cat.FeatureModules(entry.Feature, cfg.AsmType, entry.InstructionSet, uses); err != nil {
				return nil, err
			}
		}
		if len(uses) == 0 {
			return nil, errors.New(errors.ErrCodeEmptyLibrary, "no module is enabled in lib %q", lib)
		}

		mods := make(map[catalog.ModuleKey]*ModuleBuild, len(uses))
		deps := make(map[catalog.ModuleKey][]catalog.ModuleKey, len(uses))
		for key, use := range uses {
			closure, err := cat.ModuleClosure(key, external)
			if err != nil {
				return nil, err
			}
			mods[key] = &ModuleBuild{
				Kind:           use.Kind,
				InstructionSet: use.InstructionSet,
				Deps:           sortedKeys(closure),
			}
			deps[key] = mods[key].Deps
		}
		byLib[lib] = mods
		closures[lib] = deps
	}

	if err := catalog.CheckClosureEnabled(closures, external); err != nil {
		return nil, err
	}
	return byLib, nil
}

func sortedKeys(set map[catalog.ModuleKey]bool) []catalog.ModuleKey {
	keys := make([]catalog.ModuleKey, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
