package config

import (
	"slices"
	"sort"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// EnableAll is the sentinel enable name selecting the entire catalog.
const EnableAll = "all"

// EnabledFeatures computes the full enable set for a run.
//
// The set is seeded from the configuration's per-library lists: every "c"
// feature expands through [catalog.Catalog.RelatedFeatures], every assembly
// entry adds its feature plus that feature's children and records the
// instruction set in the returned asm map.
//
// The enables argument then widens the set: the sentinel "all" short-circuits
// to the whole catalog, a library name adds every feature the library owns,
// and any other name expands through RelatedFeatures.
func EnabledFeatures(cfg *Config, cat *catalog.Catalog, enables []string) (map[string]bool, map[string]string, error) {
	enabled := make(map[string]bool)
	asm := make(map[string]string)

	for _, lib := range cfg.LibOrder() {
		sel := cfg.Libs[lib]
		for _, fea := range sel.C {
			related, err := cat.RelatedFeatures(fea)
			if err != nil {
				return nil, nil, err
			}
			for name := range related {
				enabled[name] = true
			}
		}
		for _, entry := range sel.Asm {
			f, ok := cat.Feature(entry.Feature)
			if !ok {
				return nil, nil, errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", entry.Feature)
			}
			enabled[entry.Feature] = true
			asm[entry.Feature] = entry.InstructionSet
			for _, child := range f.Children {
				enabled[child] = true
			}
		}
	}

	if len(enables) == 0 {
		return enabled, asm, nil
	}
	if slices.Contains(enables, EnableAll) {
		all := make(map[string]bool)
		for _, name := range cat.FeatureNames() {
			all[name] = true
		}
		return all, asm, nil
	}
	for _, enable := range enables {
		if cat.HasLibrary(enable) {
			for _, name := range cat.LibraryFeatures(enable) {
				enabled[name] = true
			}
			continue
		}
		related, err := cat.RelatedFeatures(enable)
		if err != nil {
			return nil, nil, err
		}
		for name := range related {
			enabled[name] = true
		}
	}
	return enabled, asm, nil
}

// addFeature records a feature in the owning library's selection list,
// creating the library entry on first use and skipping duplicates.
func (c *Config) addFeature(cat *catalog.Catalog, fea, impl, instructionSet string) error {
	f, ok := cat.Feature(fea)
	if !ok {
		return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
	}
	sel := c.selection(f.Lib)
	switch impl {
	case catalog.KindC:
		if !slices.Contains(sel.C, fea) {
			sel.C = append(sel.C, fea)
		}
	default:
		for _, entry := range sel.Asm {
			if entry.Feature == fea {
				return nil
			}
		}
		sel.Asm = append(sel.Asm, AsmEntry{Feature: fea, InstructionSet: instructionSet})
	}
	return nil
}

// SetCFeatures writes every enabled feature with a "c" implementation back
// into its library's c list. Iteration is sorted for deterministic output.
func SetCFeatures(cfg *Config, cat *catalog.Catalog, enabled map[string]bool) error {
	for _, fea := range sortedNames(enabled) {
		f, ok := cat.Feature(fea)
		if !ok {
			return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
		}
		if f.SupportsKind(catalog.KindC) {
			if err := cfg.addFeature(cat, fea, catalog.KindC, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetAsmType selects the assembly type for the run. A configuration still on
// the no_asm default accepts any type; a configuration that already chose
// one rejects a different choice.
func SetAsmType(cfg *Config, asmType string) error {
	if cfg.AsmType == catalog.NoAsm {
		cfg.AsmType = asmType
		return nil
	}
	if cfg.AsmType != asmType {
		return errors.New(errors.ErrCodeInvalidConfig,
			"asmType %q is different from feature configuration (%q)", asmType, cfg.AsmType)
	}
	return nil
}

// SetAsmFeatures rebuilds every library's assembly list.
//
// Existing assembly lists are cleared first. With an explicit requested
// list, each entry is checked against the catalog and must already be in the
// enable set. Without one, every enabled feature supporting the assembly
// type is added; instruction sets recorded in fromConfig (the original
// configuration's asm entries) are carried over.
//
// Returns the assembly features actually added, keyed by feature name with
// their instruction sets.
func SetAsmFeatures(cfg *Config, cat *catalog.Catalog, enabled map[string]bool, fromConfig map[string]string, requested []AsmEntry) (map[string]string, error) {
	for _, sel := range cfg.Libs {
		sel.Asm = nil
	}

	added := make(map[string]string)
	if len(requested) > 0 {
		for _, entry := range requested {
			if err := CheckAsmEntry(entry, cfg.AsmType, cat); err != nil {
				return nil, err
			}
			if !enabled[entry.Feature] {
				return nil, errors.New(errors.ErrCodeInvalidConfig,
					"adding %q assembly requires adding it to the enable list", entry.Feature)
			}
			if err := cfg.addFeature(cat, entry.Feature, cfg.AsmType, entry.InstructionSet); err != nil {
				return nil, err
			}
			added[entry.Feature] = entry.InstructionSet
		}
		return added, nil
	}

	for _, fea := range sortedNames(enabled) {
		f, ok := cat.Feature(fea)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
		}
		if !f.SupportsKind(cfg.AsmType) {
			continue
		}
		ins := fromConfig[fea]
		if err := cfg.addFeature(cat, fea, cfg.AsmType, ins); err != nil {
			return nil, err
		}
		added[fea] = ins
	}
	return added, nil
}

// FilterNoAsm forces a pure C build: the assembly type reverts to no_asm and
// every library's assembly list is cleared.
func FilterNoAsm(cfg *Config) {
	cfg.AsmType = catalog.NoAsm
	for _, sel := range cfg.Libs {
		sel.Asm = nil
	}
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
