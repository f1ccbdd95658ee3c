package catalog

import (
	"io"
	"os"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// Feature-node keys that are attributes rather than nested child features.
const (
	nodeKeyDeps   = "deps"
	nodeKeyOpts   = "opts"
	nodeKeyInsSet = "ins_set"
)

// Module-object keys.
const (
	modKeyDeps     = ".deps"
	modKeyFeatures = ".features"
	modKeySrcs     = ".srcs"
)

// Read decodes a catalog description from r and builds the fully indexed,
// immutable Catalog.
//
// The description must be a JSON object with "libs" and "modules" sections:
//
//	{
//	  "libs": {"hitls_crypto": {"features": {"c": {"md": {"sha2": null}}}}},
//	  "modules": {"crypto": {"sha2": {".deps": ["crypto::md"], ".features": ["sha2"], ".srcs": [...]}}}
//	}
//
// A feature node is either null (a leaf) or an object whose keys are child
// feature names plus the optional attributes "deps", "opts" and "ins_set".
// Child order and instruction-set variant order follow document order.
//
// Read fails with MALFORMED_CATALOG for structural problems,
// DUPLICATE_FEATURE when a feature name recurs under a different library,
// and UNKNOWN_FEATURE when a module's ".features" names a feature the libs
// section never defines.
func Read(r io.Reader) (*Catalog, error) {
	doc, err := decodeDocument(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "decode catalog")
	}
	libsVal, hasLibs := doc.get("libs")
	modsVal, hasMods := doc.get("modules")
	if !hasLibs || !hasMods {
		return nil, errors.New(errors.ErrCodeMalformedCatalog, "catalog must contain 'libs' and 'modules' sections")
	}
	libsObj, ok := libsVal.(*jsonObject)
	if !ok {
		return nil, errors.New(errors.ErrCodeMalformedCatalog, "'libs' is not an object")
	}
	modsObj, ok := modsVal.(*jsonObject)
	if !ok {
		return nil, errors.New(errors.ErrCodeMalformedCatalog, "'modules' is not an object")
	}

	c := &Catalog{
		features: make(map[string]*Feature),
		modules:  make(map[ModuleKey]*Module),
		asmTypes: map[string]bool{NoAsm: true},
	}
	if err := c.parseLibs(libsObj); err != nil {
		return nil, err
	}
	if err := c.parseModules(modsObj); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a catalog description file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}

func (c *Catalog) parseLibs(libs *jsonObject) error {
	for _, lib := range libs.keys {
		libObj, ok := libs.values[lib].(*jsonObject)
		if !ok {
			return errors.New(errors.ErrCodeMalformedCatalog, "library %q is not an object", lib)
		}
		featsVal, ok := libObj.get("features")
		if !ok {
			return errors.New(errors.ErrCodeMalformedCatalog, "library %q has no 'features' section", lib)
		}
		featsObj, ok := featsVal.(*jsonObject)
		if !ok {
			return errors.New(errors.ErrCodeMalformedCatalog, "'features' of library %q is not an object", lib)
		}

		libFeatures := make(map[string]*Feature)
		for _, kind := range featsObj.keys {
			kindObj, ok := featsObj.values[kind].(*jsonObject)
			if !ok {
				return errors.New(errors.ErrCodeMalformedCatalog, "feature tree %q of library %q is not an object", kind, lib)
			}
			if kind != KindC {
				c.asmTypes[kind] = true
			}
			for _, fea := range kindObj.keys {
				if err := parseFeatureNode(lib, kind, "", fea, kindObj.values[fea], libFeatures); err != nil {
					return err
				}
			}
		}

		// Feature names must be unique across libraries.
		for name, f := range libFeatures {
			if prev, exists := c.features[name]; exists && prev.Lib != lib {
				return errors.New(errors.ErrCodeDuplicateFeature,
					"feature %q defined in both %q and %q", name, prev.Lib, lib)
			}
			c.features[name] = f
		}
		c.libs = append(c.libs, lib)
	}
	return nil
}

// parseFeatureNode records one node of a per-kind feature tree. The special
// keys "deps", "opts" and "ins_set" are node attributes; every other key is
// a child feature parsed recursively.
func parseFeatureNode(lib, kind, parent, name string, value any, into map[string]*Feature) error {
	if value == nil {
		addFeature(into, name, lib, parent, nil, nil, nil, kind, nil)
		return nil
	}
	obj, ok := value.(*jsonObject)
	if !ok {
		return errors.New(errors.ErrCodeMalformedCatalog, "feature node %q in library %q is not an object or null", name, lib)
	}

	var deps, insSet, children []string
	var opts [][]string
	var err error
	for _, key := range obj.keys {
		switch key {
		case nodeKeyDeps:
			if deps, err = stringList(obj.values[key]); err != nil {
				return errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'deps' of feature %q", name)
			}
		case nodeKeyOpts:
			if opts, err = parseOpts(obj.values[key]); err != nil {
				return errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'opts' of feature %q", name)
			}
		case nodeKeyInsSet:
			if insSet, err = stringList(obj.values[key]); err != nil {
				return errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'ins_set' of feature %q", name)
			}
		default:
			children = append(children, key)
			if err := parseFeatureNode(lib, kind, name, key, obj.values[key], into); err != nil {
				return err
			}
		}
	}

	addFeature(into, name, lib, parent, children, opts, deps, kind, insSet)
	return nil
}

// addFeature merges one per-kind sighting of a feature into the library's
// table. A feature may appear under several implementation kinds; scalar and
// list attributes are only overwritten by non-empty values, while the impl
// map accumulates one entry per kind.
func addFeature(into map[string]*Feature, name, lib, parent string, children []string, opts [][]string, deps []string, kind string, insSet []string) {
	f, ok := into[name]
	if !ok {
		f = &Feature{Name: name, Impl: make(map[string][]string)}
		into[name] = f
	}
	f.Lib = lib
	if parent != "" {
		f.Parent = parent
	}
	if len(children) > 0 {
		f.Children = children
	}
	if len(opts) > 0 {
		f.Opts = opts
	}
	if len(deps) > 0 {
		f.Deps = deps
	}
	if insSet == nil {
		insSet = []string{}
	}
	f.Impl[kind] = insSet
}

// parseOpts normalizes the "opts" attribute: a flat list of names is one
// alternative group, a list of lists is several.
func parseOpts(v any) ([][]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeMalformedCatalog, "expected a list")
	}
	if len(arr) == 0 {
		return nil, nil
	}
	if _, nested := arr[0].([]any); !nested {
		group, err := stringList(v)
		if err != nil {
			return nil, err
		}
		return [][]string{group}, nil
	}
	groups := make([][]string, 0, len(arr))
	for _, item := range arr {
		group, err := stringList(item)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (c *Catalog) parseModules(mods *jsonObject) error {
	for _, top := range mods.keys {
		topObj, ok := mods.values[top].(*jsonObject)
		if !ok {
			return errors.New(errors.ErrCodeMalformedCatalog, "module group %q is not an object", top)
		}
		for _, sub := range topObj.keys {
			modObj, ok := topObj.values[sub].(*jsonObject)
			if !ok {
				return errors.New(errors.ErrCodeMalformedCatalog, "module %s::%s is not an object", top, sub)
			}
			key := ModuleKey{Top: top, Sub: sub}
			mod := &Module{Key: key}
			var err error
			if v, has := modObj.get(modKeyDeps); has {
				if mod.Deps, err = stringList(v); err != nil {
					return errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.deps' of module %s", key)
				}
			}
			if v, has := modObj.get(modKeyFeatures); has {
				if mod.Features, err = stringList(v); err != nil {
					return errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.features' of module %s", key)
				}
			}
			if v, has := modObj.get(modKeySrcs); has {
				if mod.srcs, err = parseSources(key, v); err != nil {
					return err
				}
			}
			c.modules[key] = mod

			// Back-fill the feature -> modules mapping.
			for _, fea := range mod.Features {
				f, ok := c.features[fea]
				if !ok {
					return errors.New(errors.ErrCodeUnknownFeature,
						"unrecognized %q in '.features' of %s", fea, key)
				}
				f.Modules = append(f.Modules, key)
			}
		}
	}
	return nil
}

func parseSources(key ModuleKey, v any) (*moduleSources, error) {
	obj, structured := v.(*jsonObject)
	if !structured {
		flat, err := stringList(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.srcs' of module %s", key)
		}
		return &moduleSources{flat: flat}, nil
	}

	srcs := &moduleSources{structured: true, byKind: make(map[string]*kindSources)}
	var err error
	for _, kind := range obj.keys {
		val := obj.values[kind]
		switch kind {
		case "public":
			if srcs.public, err = stringList(val); err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.srcs.public' of module %s", key)
			}
		case NoAsm:
			if srcs.noAsm, err = stringList(val); err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.srcs.no_asm' of module %s", key)
			}
		default:
			ks, err := parseKindSources(key, kind, val)
			if err != nil {
				return nil, err
			}
			srcs.byKind[kind] = ks
		}
	}
	return srcs, nil
}

func parseKindSources(key ModuleKey, kind string, v any) (*kindSources, error) {
	obj, partitioned := v.(*jsonObject)
	if !partitioned {
		flat, err := stringList(v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.srcs[%s]' of module %s", kind, key)
		}
		return &kindSources{flat: flat}, nil
	}
	ks := &kindSources{partitioned: true}
	for _, ins := range obj.keys {
		files, err := stringList(obj.values[ins])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "'.srcs[%s][%s]' of module %s", kind, ins, key)
		}
		ks.variants = append(ks.variants, sourceVariant{instructionSet: ins, files: files})
	}
	return ks, nil
}
