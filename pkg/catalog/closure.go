package catalog

import (
	"strings"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// RelatedFeatures computes the transitive feature set pulled in by enabling
// seed. Starting from seed it includes:
//
//   - seed itself
//   - every dependency of seed's parent, recursively (the parent itself is
//     not added: enabling a child pulls in the parent's prerequisites
//     without force-enabling siblings)
//   - every child of seed, recursively
//   - every explicit dependency of seed, recursively
//
// The asymmetric parent handling is deliberate and load-bearing; this is not
// generic graph reachability. Features reached through several branches are
// deduplicated. A dependency chain that revisits a feature already on the
// current expansion path fails with CYCLIC_DEPENDENCY carrying the path,
// since "deps" edges are not guaranteed acyclic by the catalog format.
func (c *Catalog) RelatedFeatures(seed string) (map[string]bool, error) {
	related := make(map[string]bool)
	if err := c.relatedFeatures(seed, related, nil); err != nil {
		return nil, err
	}
	return related, nil
}

func (c *Catalog) relatedFeatures(name string, related map[string]bool, path []string) error {
	for _, p := range path {
		if p == name {
			return errors.New(errors.ErrCodeCyclicDependency,
				"feature dependency cycle: %s -> %s", strings.Join(path, " -> "), name)
		}
	}
	if related[name] {
		return nil
	}
	f, ok := c.features[name]
	if !ok {
		return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", name)
	}
	related[name] = true
	path = append(path, name)

	if f.Parent != "" {
		parent, ok := c.features[f.Parent]
		if !ok {
			return errors.New(errors.ErrCodeUnknownFeature,
				"feature %q has unknown parent %q", name, f.Parent)
		}
		for _, dep := range parent.Deps {
			if err := c.relatedFeatures(dep, related, path); err != nil {
				return err
			}
		}
	}
	for _, child := range f.Children {
		if err := c.relatedFeatures(child, related, path); err != nil {
			return err
		}
	}
	for _, dep := range f.Deps {
		if err := c.relatedFeatures(dep, related, path); err != nil {
			return err
		}
	}
	return nil
}

// ModuleUse records how an enabled module is to be compiled: with which
// implementation kind and, for partitioned assembly sources, which
// instruction set.
type ModuleUse struct {
	Kind           string
	InstructionSet string
}

// FeatureModules collects into dst every module attached to the feature and,
// recursively, to its descendants, tagging each with the resolution kind and
// instruction set. Later collections overwrite earlier tags for the same
// module, matching last-wins resolution across overlapping features.
func (c *Catalog) FeatureModules(name, kind, instructionSet string, dst map[ModuleKey]ModuleUse) error {
	f, ok := c.features[name]
	if !ok {
		return errors.New(errors.ErrCodeUnknownFeature, "unrecognized feature %q", name)
	}
	for _, key := range f.Modules {
		dst[key] = ModuleUse{Kind: kind, InstructionSet: instructionSet}
	}
	for _, child := range f.Children {
		if err := c.FeatureModules(child, kind, instructionSet, dst); err != nil {
			return err
		}
	}
	return nil
}
