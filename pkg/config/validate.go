package config

import (
	"slices"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// Validate checks the configuration against its closed schema and the
// catalog. It fails fast on the first violation with INVALID_CONFIG naming
// the offending key or value; it is always run before resolution.
//
// Checks, in order: required keys set, scalar and list values within their
// choice sets, every referenced library defined by the catalog, every "c"
// feature known, and every assembly entry naming a feature that exists,
// supports the selected assembly type, and declares the requested
// instruction set. Duplicate assembly features within one library are
// rejected.
func Validate(cfg *Config, cat *catalog.Catalog) error {
	if cfg.Endian == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "missing 'endian'")
	}
	if len(cfg.LibType) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "missing 'libType'")
	}
	if cfg.AsmType == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "missing 'asmType'")
	}
	if cfg.Libs == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "missing 'libs'")
	}

	if cfg.System != "" && !slices.Contains(SystemChoices, cfg.System) {
		return errors.New(errors.ErrCodeInvalidConfig, "wrong value of 'system': %q", cfg.System)
	}
	if cfg.Bits != 0 && !slices.Contains(BitsChoices, cfg.Bits) {
		return errors.New(errors.ErrCodeInvalidConfig, "wrong value of 'bits': %d", cfg.Bits)
	}
	if !slices.Contains(EndianChoices, cfg.Endian) {
		return errors.New(errors.ErrCodeInvalidConfig, "wrong value of 'endian': %q", cfg.Endian)
	}
	for _, lt := range cfg.LibType {
		if !slices.Contains(LibTypeChoices, lt) {
			return errors.New(errors.ErrCodeInvalidConfig, "wrong value of 'libType': %q", lt)
		}
	}
	if !cat.HasAsmType(cfg.AsmType) {
		return errors.New(errors.ErrCodeInvalidConfig, "wrong value of 'asmType': %q", cfg.AsmType)
	}

	for _, lib := range cfg.LibOrder() {
		sel := cfg.Libs[lib]
		if !cat.HasLibrary(lib) {
			return errors.New(errors.ErrCodeInvalidConfig, "unsupported lib %q", lib)
		}
		for _, fea := range sel.C {
			if _, ok := cat.Feature(fea); !ok {
				return errors.New(errors.ErrCodeInvalidConfig, "unsupported feature %q in lib %q", fea, lib)
			}
		}
		seen := make(map[string]bool)
		for _, entry := range sel.Asm {
			if err := CheckAsmEntry(entry, cfg.AsmType, cat); err != nil {
				return err
			}
			if seen[entry.Feature] {
				return errors.New(errors.ErrCodeInvalidConfig,
					"duplicate assembly feature %q in lib %q", entry.Feature, lib)
			}
			seen[entry.Feature] = true
		}
	}
	return nil
}

// CheckAsmEntry verifies one assembly entry against the catalog: the feature
// must exist, support asmType, and (when an instruction set is given) the
// set must be the assembly type itself or among the feature's declared sets
// for it.
func CheckAsmEntry(entry AsmEntry, asmType string, cat *catalog.Catalog) error {
	f, ok := cat.Feature(entry.Feature)
	if !ok {
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported feature %q in asm list", entry.Feature)
	}
	if !f.SupportsKind(asmType) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"feature %q has no assembly implementation of type %q", entry.Feature, asmType)
	}
	if ins := entry.InstructionSet; ins != "" && ins != asmType && !slices.Contains(f.InstructionSets(asmType), ins) {
		return errors.New(errors.ErrCodeInvalidConfig,
			"unsupported instruction set %q of feature %q", ins, entry.Feature)
	}
	return nil
}

// Feature names in hitls_bsl that pull in OS services; configurations using
// any of them must state the target system explicitly.
var systemFeatures = []string{"sal_mem", "sal_thread", "sal_lock", "sal_time", "sal_file", "sal_net", "sal_str"}

// CheckBitsRequirement rejects configurations enabling big-number support
// without stating the word width: the bn code derives limb layout from it.
func CheckBitsRequirement(cfg *Config) error {
	sel, ok := cfg.Libs["hitls_crypto"]
	if !ok {
		return nil
	}
	hasBn := slices.Contains(sel.C, "bn")
	for _, entry := range sel.Asm {
		if entry.Feature == "bn" {
			hasBn = true
		}
	}
	if hasBn && cfg.Bits == 0 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"if 'bn' is used, the 'bits' of the system must be configured")
	}
	return nil
}

// CheckSystemRequirement rejects configurations enabling OS abstraction
// features without stating the target system.
func CheckSystemRequirement(cfg *Config) error {
	sel, ok := cfg.Libs["hitls_bsl"]
	if !ok {
		return nil
	}
	has := false
	for _, fea := range sel.C {
		if slices.Contains(systemFeatures, fea) {
			has = true
		}
	}
	for _, entry := range sel.Asm {
		if slices.Contains(systemFeatures, entry.Feature) {
			has = true
		}
	}
	if has && cfg.System == "" {
		return errors.New(errors.ErrCodeInvalidConfig,
			"if %v is used, the system type must be configured", systemFeatures)
	}
	return nil
}
