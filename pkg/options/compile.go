package options

import (
	"encoding/json"
	"io"
	"os"
	"slices"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

// LinkFlags carries the three linker-flag scopes of the base compile file.
type LinkFlags struct {
	Public []string `json:"PUBLIC"`
	Shared []string `json:"SHARED"`
	Exe    []string `json:"EXE"`
}

// CompileSet is the base compile file: the default flags per category plus
// the scoped linker flags. Every category and flag must be known to the
// option catalog.
type CompileSet struct {
	Compile map[string][]string
	Link    LinkFlags
}

type rawCompileSet struct {
	CompileFlag map[string][]string `json:"compileFlag"`
	LinkFlag    map[string][]string `json:"linkFlag"`
}

// ReadCompileSet decodes the base compile file from r and validates it
// against the option catalog: unknown categories, flags outside their
// category's catalog list, and link scopes other than PUBLIC/SHARED/EXE all
// fail the load.
func ReadCompileSet(r io.Reader, set *OptionSet) (*CompileSet, error) {
	var raw rawCompileSet
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode compile file")
	}
	if raw.CompileFlag == nil || raw.LinkFlag == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"compile file must contain 'compileFlag' and 'linkFlag' sections")
	}

	cs := &CompileSet{Compile: make(map[string][]string, len(raw.CompileFlag))}
	for category, flags := range raw.CompileFlag {
		if !slices.Contains(CategoryOrder, category) {
			return nil, errors.New(errors.ErrCodeUnrecognizedOption,
				"no %q option type in the option catalog", category)
		}
		for _, flag := range flags {
			if !set.Knows(category, flag) {
				return nil, errors.New(errors.ErrCodeUnrecognizedOption,
					"unrecognized option %q in type %s", flag, category)
			}
		}
		cs.Compile[category] = flags
	}
	for scope, flags := range raw.LinkFlag {
		switch scope {
		case ScopePublic:
			cs.Link.Public = flags
		case ScopeShared:
			cs.Link.Shared = flags
		case ScopeExe:
			cs.Link.Exe = flags
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown link scope %q", scope)
		}
	}
	return cs, nil
}

// LoadCompileSet reads a base compile file.
func LoadCompileSet(path string, set *OptionSet) (*CompileSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open %s", path)
	}
	defer f.Close()
	return ReadCompileSet(f, set)
}
