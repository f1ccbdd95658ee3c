// Package config implements the user-facing build configuration: its closed
// key schema, validation against a feature catalog, enable/disable set
// algebra, parent-retention pruning, and the derivation of enabled modules
// and preprocessor macros.
//
// A Config is loaded once, validated, then rewritten by the explicit
// pipeline steps (validate → enable → prune → derive) for a single
// resolution run. Each step is a plain function so partial states never
// escape; orchestration lives in the plan package.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// Recognized scalar choices and defaults. The asmType choice set is not
// fixed here: it comes from the catalog's discovered assembly types.
var (
	SystemChoices  = []string{"linux"}
	BitsChoices    = []int{32, 64}
	EndianChoices  = []string{"little", "big"}
	LibTypeChoices = []string{"static", "shared", "object"}

	DefaultSystem  = "linux"
	DefaultBits    = 64
	DefaultEndian  = "little"
	DefaultLibType = []string{"static", "shared", "object"}
	DefaultAsmType = catalog.NoAsm
)

// canonicalLibOrder is the persistence order for libraries; libraries
// outside this list are appended in lexical order.
var canonicalLibOrder = []string{"hitls_bsl", "hitls_crypto", "hitls_tls", "hitls_x509"}

// AsmEntry is one assembly-list entry: a feature plus an optional
// instruction set. The textual form is "feature" or "feature::instruction_set";
// it is parsed exactly once at the boundary and never re-split downstream.
type AsmEntry struct {
	Feature        string
	InstructionSet string
}

// ParseAsmEntry splits the textual "feature::instruction_set" form.
func ParseAsmEntry(s string) AsmEntry {
	fea, ins, ok := strings.Cut(s, "::")
	if !ok {
		return AsmEntry{Feature: s}
	}
	return AsmEntry{Feature: fea, InstructionSet: ins}
}

// String returns the textual form used in configuration files.
func (e AsmEntry) String() string {
	if e.InstructionSet == "" {
		return e.Feature
	}
	return e.Feature + "::" + e.InstructionSet
}

// LibSelection lists the features a library enables, split by
// implementation: portable C features and assembly features.
type LibSelection struct {
	C   []string
	Asm []AsmEntry
}

// Config is one user build configuration. Zero values of System and Bits
// mean "not configured": they are only defaulted on demand (see
// ApplyScalarDefault) because some features require them explicitly.
type Config struct {
	System  string
	Bits    int
	Endian  string
	LibType []string
	AsmType string
	Libs    map[string]*LibSelection
}

// Default returns a configuration with every required key set to its
// documented default.
func Default() *Config {
	return &Config{
		Endian:  DefaultEndian,
		LibType: append([]string(nil), DefaultLibType...),
		AsmType: DefaultAsmType,
		Libs:    make(map[string]*LibSelection),
	}
}

// rawConfig mirrors the JSON document; pointers distinguish missing keys
// from zero values.
type rawConfig struct {
	System  *string                     `json:"system"`
	Bits    *int                        `json:"bits"`
	Endian  *string                     `json:"endian"`
	LibType *[]string                   `json:"libType"`
	AsmType *string                     `json:"asmType"`
	Libs    map[string]*rawLibSelection `json:"libs"`
}

type rawLibSelection struct {
	C   []string `json:"c"`
	Asm []string `json:"asm"`
}

// Read decodes a user feature configuration from r.
//
// The schema is closed: any key outside the recognized set, or a value of
// the wrong kind, fails with INVALID_CONFIG naming the key. Missing keys are
// tolerated here; ApplyDefaults fills the defaultable ones and Validate
// rejects what remains unset.
func Read(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read feature configuration")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode feature configuration")
	}
	for key := range keys {
		switch key {
		case "system", "bits", "endian", "libType", "asmType", "libs":
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported config %q", key)
		}
	}

	var raw rawConfig
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "wrong value kind in feature configuration")
	}

	cfg := &Config{Libs: make(map[string]*LibSelection)}
	if raw.System != nil {
		cfg.System = *raw.System
	}
	if raw.Bits != nil {
		cfg.Bits = *raw.Bits
	}
	if raw.Endian != nil {
		cfg.Endian = *raw.Endian
	}
	if raw.LibType != nil {
		cfg.LibType = *raw.LibType
	}
	if raw.AsmType != nil {
		cfg.AsmType = *raw.AsmType
	}
	for lib, sel := range raw.Libs {
		ls := &LibSelection{C: sel.C}
		for _, s := range sel.Asm {
			ls.Asm = append(ls.Asm, ParseAsmEntry(s))
		}
		cfg.Libs[lib] = ls
	}
	return cfg, nil
}

// Load reads a user feature configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open %s", path)
	}
	defer f.Close()
	return Read(f)
}

// ApplyDefaults fills missing required keys (endian, libType, asmType, libs)
// with their documented defaults. Each completion is reported as a warning
// rather than an error; system and bits are left unset on purpose (see
// ApplyScalarDefault).
func (c *Config) ApplyDefaults() []string {
	var warnings []string
	warn := func(key string, def any) {
		warnings = append(warnings,
			fmt.Sprintf("configuration item %q is missing and has been set to the default value %v", key, def))
	}
	if c.Endian == "" {
		c.Endian = DefaultEndian
		warn("endian", DefaultEndian)
	}
	if len(c.LibType) == 0 {
		c.LibType = append([]string(nil), DefaultLibType...)
		warn("libType", DefaultLibType)
	}
	if c.AsmType == "" {
		c.AsmType = DefaultAsmType
		warn("asmType", DefaultAsmType)
	}
	if c.Libs == nil {
		c.Libs = make(map[string]*LibSelection)
	}
	return warnings
}

// ApplyScalarDefault fills system or bits with its default when unset,
// returning a warning when it does. Used by the "enable all" path, where
// every feature-conditional scalar must end up configured.
func (c *Config) ApplyScalarDefault(key string) (string, error) {
	switch key {
	case "system":
		if c.System == "" {
			c.System = DefaultSystem
			return fmt.Sprintf("configuration item %q is missing and has been set to the default value %q", key, DefaultSystem), nil
		}
	case "bits":
		if c.Bits == 0 {
			c.Bits = DefaultBits
			return fmt.Sprintf("configuration item %q is missing and has been set to the default value %d", key, DefaultBits), nil
		}
	default:
		return "", errors.New(errors.ErrCodeInternal, "no default for config key %q", key)
	}
	return "", nil
}

// LibOrder returns the configured libraries in persistence order: the
// canonical library order first, then any others lexically.
func (c *Config) LibOrder() []string {
	order := make([]string, 0, len(c.Libs))
	seen := make(map[string]bool, len(c.Libs))
	for _, lib := range canonicalLibOrder {
		if _, ok := c.Libs[lib]; ok {
			order = append(order, lib)
			seen[lib] = true
		}
	}
	var rest []string
	for lib := range c.Libs {
		if !seen[lib] {
			rest = append(rest, lib)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// selection returns the lib's selection, creating it on first use.
func (c *Config) selection(lib string) *LibSelection {
	sel, ok := c.Libs[lib]
	if !ok {
		sel = &LibSelection{}
		c.Libs[lib] = sel
	}
	return sel
}
