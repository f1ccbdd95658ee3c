package config

import (
	"fmt"
	"sort"
	"strings"
)

// Macros derives the preprocessor macro set of a resolved configuration.
// The derivation is purely syntactic:
//
//   - every enabled c feature emits -D<LIB>_<FEATURE>;
//   - every enabled assembly feature emits -D<LIB>_<FEATURE>,
//     -D<LIB>_<FEATURE>_ASM and -D<LIB>_<FEATURE>_<ASMTYPE>;
//   - the endian, system, and bit-width scalars emit their fixed macros.
//
// The result is sorted and duplicate-free.
func Macros(cfg *Config) []string {
	macros := make(map[string]bool)
	for lib, sel := range cfg.Libs {
		libUpper := strings.ToUpper(lib)
		for _, fea := range sel.C {
			macros[fmt.Sprintf("-D%s_%s", libUpper, strings.ToUpper(fea))] = true
		}
		for _, entry := range sel.Asm {
			feaUpper := strings.ToUpper(entry.Feature)
			macros[fmt.Sprintf("-D%s_%s", libUpper, feaUpper)] = true
			macros[fmt.Sprintf("-D%s_%s_ASM", libUpper, feaUpper)] = true
			macros[fmt.Sprintf("-D%s_%s_%s", libUpper, feaUpper, strings.ToUpper(cfg.AsmType))] = true
		}
	}

	if cfg.Endian == "big" {
		macros["-DHITLS_BIG_ENDIAN"] = true
	}
	if cfg.System != "" {
		macros["-DHITLS_BSL_SAL_LINUX"] = true
	}
	switch cfg.Bits {
	case 32:
		macros["-DHITLS_THIRTY_TWO_BITS"] = true
	case 64:
		macros["-DHITLS_SIXTY_FOUR_BITS"] = true
	}

	out := make([]string, 0, len(macros))
	for m := range macros {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
