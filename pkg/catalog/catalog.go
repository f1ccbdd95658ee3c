// Package catalog models the static feature/module description of a
// multi-library native codebase and provides the closure computations the
// resolver is built on.
//
// A catalog is constructed once from a JSON description (see [Read]) and is
// immutable afterwards: concurrent resolution runs may share one catalog by
// reference.
//
// # Data model
//
// Features form a forest per library: a feature is free-standing or belongs
// to exactly one parent. Cross-cutting "deps" edges may point anywhere in the
// forest. Each feature maps implementation kinds ("c" or an assembly type
// name) to the instruction-set labels it supports for that kind.
//
// Modules are compilation units keyed "top::sub" with their own dependency
// edges, independent of the feature graph. Modules declare which features
// require them via ".features"; the catalog back-fills the reverse mapping
// during construction.
package catalog

import (
	"sort"
	"strings"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// KindC is the portable C implementation kind. Every other kind appearing in
// a catalog is an assembly type.
const KindC = "c"

// NoAsm is the sentinel assembly type meaning no assembly is used.
const NoAsm = "no_asm"

// ModuleKey identifies a module by its top-level group and sub-group.
type ModuleKey struct {
	Top string
	Sub string
}

// String returns the canonical "top::sub" form.
func (k ModuleKey) String() string { return k.Top + "::" + k.Sub }

// ParseModuleKey parses a "top::sub" key.
func ParseModuleKey(s string) (ModuleKey, error) {
	top, sub, ok := strings.Cut(s, "::")
	if !ok || top == "" || sub == "" {
		return ModuleKey{}, errors.New(errors.ErrCodeUnknownModule, "invalid module key %q, want 'top::sub'", s)
	}
	return ModuleKey{Top: top, Sub: sub}, nil
}

// ExternalSet lists modules that are considered always satisfied without
// being part of the enabled set (foreign dependencies provided by the
// platform rather than the build).
type ExternalSet map[ModuleKey]bool

// DefaultExternals returns the standard allow-list: the platform's hardened
// C runtime, which every tree links against but never builds.
func DefaultExternals() ExternalSet {
	return ExternalSet{{Top: "platform", Sub: "Secure_C"}: true}
}

// Feature is one independently enable/disable-able capability unit.
// All slices preserve catalog document order unless stated otherwise.
type Feature struct {
	Name     string
	Lib      string              // owning library
	Parent   string              // empty for free-standing features
	Children []string            // declared order
	Deps     []string            // features required when this one is enabled
	Opts     [][]string          // alternative groups, each needs one enabled member
	Impl     map[string][]string // implementation kind -> instruction sets (may be empty)
	Modules  []ModuleKey         // modules declaring this feature in ".features"
}

// SupportsKind reports whether the feature has an implementation of the
// given kind ("c" or an assembly type).
func (f *Feature) SupportsKind(kind string) bool {
	_, ok := f.Impl[kind]
	return ok
}

// InstructionSets returns the instruction-set labels declared for kind.
// An empty result with SupportsKind true means "supported generically".
func (f *Feature) InstructionSets(kind string) []string {
	return f.Impl[kind]
}

// sourceVariant is one instruction-set partition of an assembly source list.
type sourceVariant struct {
	instructionSet string
	files          []string
}

// kindSources holds a module's sources for one implementation kind: either
// a flat file list or instruction-set partitions in declared order.
type kindSources struct {
	flat        []string
	variants    []sourceVariant
	partitioned bool
}

// moduleSources is the parsed ".srcs" value of a module. The blurred form is
// a plain list; the structured form partitions by kind ("public", "no_asm",
// or an assembly type) and optionally by instruction set.
type moduleSources struct {
	flat       []string
	public     []string
	noAsm      []string
	byKind     map[string]*kindSources
	structured bool
}

// Module is a named compilation unit.
type Module struct {
	Key      ModuleKey
	Features []string // features requiring this module (".features")
	Deps     []string // raw dependency keys (".deps"), may name externals
	srcs     *moduleSources
}

// Catalog is the immutable, fully indexed feature/module description.
type Catalog struct {
	libs     []string // declared order
	features map[string]*Feature
	modules  map[ModuleKey]*Module
	asmTypes map[string]bool // implementation kinds except "c", plus "no_asm"
}

// Libraries returns the library names in declared order.
func (c *Catalog) Libraries() []string { return c.libs }

// HasLibrary reports whether the catalog defines the library.
func (c *Catalog) HasLibrary(name string) bool {
	for _, lib := range c.libs {
		if lib == name {
			return true
		}
	}
	return false
}

// Feature returns the named feature.
func (c *Catalog) Feature(name string) (*Feature, bool) {
	f, ok := c.features[name]
	return f, ok
}

// FeatureNames returns every feature name, sorted.
func (c *Catalog) FeatureNames() []string {
	names := make([]string, 0, len(c.features))
	for name := range c.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LibraryFeatures returns the names of all features owned by lib, sorted.
func (c *Catalog) LibraryFeatures(lib string) []string {
	var names []string
	for name, f := range c.features {
		if f.Lib == lib {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Module returns the module with the given key.
func (c *Catalog) Module(key ModuleKey) (*Module, bool) {
	m, ok := c.modules[key]
	return m, ok
}

// ModuleKeys returns every module key, sorted by string form.
func (c *Catalog) ModuleKeys() []ModuleKey {
	keys := make([]ModuleKey, 0, len(c.modules))
	for key := range c.modules {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// AsmTypes returns the supported assembly types (including "no_asm"), sorted.
func (c *Catalog) AsmTypes() []string {
	types := make([]string, 0, len(c.asmTypes))
	for t := range c.asmTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HasAsmType reports whether t is a recognized assembly type.
func (c *Catalog) HasAsmType(t string) bool { return c.asmTypes[t] }
