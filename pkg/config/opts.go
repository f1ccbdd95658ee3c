package config

import (
	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// CheckFeatureOptions verifies every "at least one of" constraint reachable
// from the configuration's enabled features.
//
// For each enabled feature, each of its alternative groups must have at
// least one member that is either enabled directly or whose parent is
// enabled; otherwise the check fails with UNSATISFIED_OPTION naming the
// feature and the unmet group. The constraint is not confined to directly
// enabled features: the groups of every ancestor and every descendant of an
// enabled feature must hold as well.
func CheckFeatureOptions(cfg *Config, cat *catalog.Catalog) error {
	enabled := make(map[string]bool)
	for _, sel := range cfg.Libs {
		for _, fea := range sel.C {
			enabled[fea] = true
		}
		for _, entry := range sel.Asm {
			enabled[entry.Feature] = true
		}
	}

	for fea := range enabled {
		if err := checkOpts(fea, enabled, cat); err != nil {
			return err
		}
		if err := checkAncestorOpts(fea, enabled, cat); err != nil {
			return err
		}
		if err := checkDescendantOpts(fea, enabled, cat); err != nil {
			return err
		}
	}
	return nil
}

func checkOpts(fea string, enabled map[string]bool, cat *catalog.Catalog) error {
	f, ok := cat.Feature(fea)
	if !ok {
		return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
	}
	for _, group := range f.Opts {
		satisfied := false
		for _, member := range group {
			mf, ok := cat.Feature(member)
			if !ok {
				return errors.New(errors.ErrCodeUnknownFeature,
					"unrecognized feature %q in 'opts' of %q", member, fea)
			}
			if enabled[member] || (mf.Parent != "" && enabled[mf.Parent]) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return errors.New(errors.ErrCodeUnsatisfiedOption,
				"feature %q must work with at least one feature in %v", fea, group)
		}
	}
	return nil
}

func checkAncestorOpts(fea string, enabled map[string]bool, cat *catalog.Catalog) error {
	f, ok := cat.Feature(fea)
	if !ok {
		return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
	}
	if f.Parent == "" {
		return nil
	}
	if err := checkOpts(f.Parent, enabled, cat); err != nil {
		return err
	}
	return checkAncestorOpts(f.Parent, enabled, cat)
}

func checkDescendantOpts(fea string, enabled map[string]bool, cat *catalog.Catalog) error {
	f, ok := cat.Feature(fea)
	if !ok {
		return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", fea)
	}
	for _, child := range f.Children {
		if err := checkOpts(child, enabled, cat); err != nil {
			return err
		}
		if err := checkDescendantOpts(child, enabled, cat); err != nil {
			return err
		}
	}
	return nil
}
