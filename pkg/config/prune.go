package config

import (
	"slices"
	"sort"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// PruneEnabled applies the parent-retention rule to one enabled feature
// list, given the explicit disable set.
//
// Sub-feature preprocessor macros are derived from the parent feature macro
// in the generated code, so disabling a parent while keeping a child is only
// coherent if the child is explicitly re-added. Concretely, for each enabled
// feature:
//
//   - a feature whose parent was disabled is replaced by its own children;
//   - a feature with an explicitly disabled ancestor fails with
//     CONFLICTING_SELECTION (it is both reachable from an enable and rooted
//     under a disable);
//   - a feature with an ancestor in the same enabled list is covered by that
//     ancestor and dropped, avoiding duplicate macro emission;
//   - everything else is kept.
//
// The disable set is subtracted unconditionally at the end and the result is
// sorted. Disabled names unknown to the catalog only take part in the final
// subtraction.
func PruneEnabled(features []string, disables []string, cat *catalog.Catalog) ([]string, error) {
	disabledParents := make(map[string]bool)
	for _, d := range disables {
		if f, ok := cat.Feature(d); ok && f.Parent != "" {
			disabledParents[f.Parent] = true
		}
	}

	input := make(map[string]bool, len(features))
	for _, fea := range features {
		input[fea] = true
	}

	kept := make(map[string]bool)
	for _, fea := range features {
		f, ok := cat.Feature(fea)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
		}
		if disabledParents[fea] {
			for _, child := range f.Children {
				kept[child] = true
			}
			continue
		}
		covered := false
		for cur := f; cur.Parent != ""; {
			if slices.Contains(disables, cur.Parent) {
				return nil, errors.New(errors.ErrCodeConflictingSelection,
					"enabled feature %q conflicts with disabled features %v", fea, disables)
			}
			if input[cur.Parent] {
				covered = true
				break
			}
			parent, ok := cat.Feature(cur.Parent)
			if !ok {
				return nil, errors.New(errors.ErrCodeUnknownFeature,
					"feature %q has unknown parent %q", cur.Name, cur.Parent)
			}
			cur = parent
		}
		if !covered {
			kept[fea] = true
		}
	}

	for _, d := range disables {
		delete(kept, d)
	}
	out := make([]string, 0, len(kept))
	for fea := range kept {
		out = append(out, fea)
	}
	sort.Strings(out)
	return out, nil
}

// pruneAsm applies PruneEnabled to an assembly list, preserving the
// instruction set of every surviving entry. Children promoted in place of a
// disabled parent carry no instruction set.
func pruneAsm(entries []AsmEntry, disables []string, cat *catalog.Catalog) ([]AsmEntry, error) {
	names := make([]string, len(entries))
	ins := make(map[string]string, len(entries))
	for i, e := range entries {
		names[i] = e.Feature
		ins[e.Feature] = e.InstructionSet
	}
	pruned, err := PruneEnabled(names, disables, cat)
	if err != nil {
		return nil, err
	}
	out := make([]AsmEntry, len(pruned))
	for i, fea := range pruned {
		out[i] = AsmEntry{Feature: fea, InstructionSet: ins[fea]}
	}
	return out, nil
}

// The base services library and its always-on feature: every build needs the
// system abstraction layer, so it is seeded when a catalog defines it.
const (
	baseLib        = "hitls_bsl"
	baseLibFeature = "sal"
)

// Update finalizes the per-library feature lists of a configuration after
// the enable set has been written back:
//
//  1. rejects configurations that select nothing at all;
//  2. seeds the base library's always-on feature when the catalog has it;
//  3. prunes every c and assembly list against the disable set;
//  4. re-orders libraries canonically;
//  5. for "all" builds, defaults the system and bits scalars.
//
// Returned warnings report defaulted scalars.
func Update(cfg *Config, cat *catalog.Catalog, enables, disables []string) ([]string, error) {
	if len(cfg.Libs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"no features are set, check whether 'enable' and 'asm-type' need to be set")
	}

	if _, ok := cat.Feature(baseLibFeature); ok && cat.HasLibrary(baseLib) {
		if err := cfg.addFeature(cat, baseLibFeature, catalog.KindC, ""); err != nil {
			return nil, err
		}
	}

	for _, lib := range cfg.LibOrder() {
		sel := cfg.Libs[lib]
		var err error
		if sel.C, err = PruneEnabled(sel.C, disables, cat); err != nil {
			return nil, err
		}
		if cfg.AsmType != catalog.NoAsm && len(sel.Asm) > 0 {
			if sel.Asm, err = pruneAsm(sel.Asm, disables, cat); err != nil {
				return nil, err
			}
		}
	}

	var warnings []string
	if slices.Contains(enables, EnableAll) {
		for _, key := range []string{"system", "bits"} {
			w, err := cfg.ApplyScalarDefault(key)
			if err != nil {
				return nil, err
			}
			if w != "" {
				warnings = append(warnings, w)
			}
		}
	}
	return warnings, nil
}
