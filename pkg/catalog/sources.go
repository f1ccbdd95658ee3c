package catalog

import (
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// ModuleSources resolves a module's blurred source list to a flat file list
// for the chosen implementation kind and instruction set.
//
// The "public" list is always included. For kind "c" the "no_asm" list is
// appended. For an assembly kind the matching instruction-set partition is
// appended; when no instruction set is named and the per-kind sources are
// partitioned, the first-declared variant is used.
//
// Fails with UNKNOWN_MODULE for an unknown key and MISSING_SOURCE_VARIANT
// when the requested kind (or instruction set) has no source entry.
func (c *Catalog) ModuleSources(key ModuleKey, kind, instructionSet string) ([]string, error) {
	mod, ok := c.modules[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownModule, "unknown module %s", key)
	}
	srcs := mod.srcs
	if srcs == nil {
		return nil, nil
	}
	if !srcs.structured {
		return append([]string(nil), srcs.flat...), nil
	}

	out := append([]string(nil), srcs.public...)
	if kind == KindC {
		return append(out, srcs.noAsm...), nil
	}

	ks, ok := srcs.byKind[kind]
	if !ok {
		return nil, errors.New(errors.ErrCodeMissingSourceVariant,
			"missing '.srcs[%s]' in module %s", kind, key)
	}
	if !ks.partitioned {
		return append(out, ks.flat...), nil
	}
	if len(ks.variants) == 0 {
		return nil, errors.New(errors.ErrCodeMissingSourceVariant,
			"empty '.srcs[%s]' in module %s", kind, key)
	}
	if instructionSet == "" {
		return append(out, ks.variants[0].files...), nil
	}
	for _, v := range ks.variants {
		if v.instructionSet == instructionSet {
			return append(out, v.files...), nil
		}
	}
	return nil, errors.New(errors.ErrCodeMissingSourceVariant,
		"missing '.srcs[%s][%s]' in module %s", kind, instructionSet, key)
}
