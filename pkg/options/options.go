// Package options implements the compiler/linker flag model: the base
// option catalog assigning every known flag to one of eleven fixed,
// order-significant categories, the base compile file, user deltas, and the
// deterministic, order-preserving merge of the three.
package options

import (
	"encoding/json"
	"io"
	"os"
	"slices"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// The eleven flag categories in their fixed merge order. Output flag order
// always follows this sequence regardless of input ordering.
const (
	CategoryDebug       = "CC_DEBUG_FLAGS"
	CategoryOptLevel    = "CC_OPT_LEVEL"
	CategoryOverall     = "CC_OVERALL_FLAGS"
	CategoryWarn        = "CC_WARN_FLAGS"
	CategoryLanguage    = "CC_LANGUAGE_FLAGS"
	CategoryCodeGen     = "CC_CDG_FLAGS"
	CategoryMDDependent = "CC_MD_DEPENDENT_FLAGS"
	CategoryOpt         = "CC_OPT_FLAGS"
	CategorySecurity    = "CC_SEC_FLAGS"
	CategoryDefine      = "CC_DEFINE_FLAGS"
	CategoryUserDefine  = "CC_USER_DEFINE_FLAGS"
)

// CategoryOrder lists the categories in merge order.
var CategoryOrder = []string{
	CategoryDebug,
	CategoryOptLevel,
	CategoryOverall,
	CategoryWarn,
	CategoryLanguage,
	CategoryCodeGen,
	CategoryMDDependent,
	CategoryOpt,
	CategorySecurity,
	CategoryDefine,
	CategoryUserDefine,
}

// Link-flag scopes.
const (
	ScopePublic = "PUBLIC"
	ScopeShared = "SHARED"
	ScopeExe    = "EXE"
)

// OptionSet is the base catalog of all known compiler flags, each assigned
// to exactly one category. It is loaded once and immutable for the run.
type OptionSet struct {
	byCategory map[string][]string
	categoryOf map[string]string
}

type rawOptionSet struct {
	CompileFlag map[string][]string `json:"compileFlag"`
	LinkFlag    map[string][]string `json:"linkFlag"`
}

// ReadOptionSet decodes the complete-options catalog from r. The document
// must carry "compileFlag" and "linkFlag" sections and may only use the
// eleven fixed categories.
func ReadOptionSet(r io.Reader) (*OptionSet, error) {
	var raw rawOptionSet
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "decode option catalog")
	}
	if raw.CompileFlag == nil || raw.LinkFlag == nil {
		return nil, errors.New(errors.ErrCodeMalformedCatalog,
			"option catalog must contain 'compileFlag' and 'linkFlag' sections")
	}
	set := &OptionSet{
		byCategory: make(map[string][]string, len(raw.CompileFlag)),
		categoryOf: make(map[string]string),
	}
	for category, flags := range raw.CompileFlag {
		if !slices.Contains(CategoryOrder, category) {
			return nil, errors.New(errors.ErrCodeMalformedCatalog, "unknown flag category %q", category)
		}
		set.byCategory[category] = flags
		for _, flag := range flags {
			set.categoryOf[flag] = category
		}
	}
	return set, nil
}

// LoadOptionSet reads a complete-options catalog file.
func LoadOptionSet(path string) (*OptionSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedCatalog, err, "open %s", path)
	}
	defer f.Close()
	return ReadOptionSet(f)
}

// CategoryOf returns the category a flag belongs to. Unknown flags default
// to the user-defined category.
func (s *OptionSet) CategoryOf(flag string) string {
	if category, ok := s.categoryOf[flag]; ok {
		return category
	}
	return CategoryUserDefine
}

// Flags returns the catalog's flags for one category.
func (s *OptionSet) Flags(category string) []string { return s.byCategory[category] }

// Knows reports whether flag appears in the catalog under category.
func (s *OptionSet) Knows(category, flag string) bool {
	return slices.Contains(s.byCategory[category], flag)
}
