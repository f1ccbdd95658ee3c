package plan

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/config"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

const testCatalog = `{
    "libs": {
        "hitls_bsl": {
            "features": {
                "c": {"sal": null, "log": null}
            }
        },
        "hitls_crypto": {
            "features": {
                "c": {
                    "eal": null,
                    "md": {"deps": ["eal"], "sha2": null}
                },
                "x8664": {
                    "sha2": {"ins_set": ["x8664", "avx512"]}
                }
            }
        }
    },
    "modules": {
        "bsl": {
            "sal": {".features": ["sal"], ".srcs": ["sal.c"]},
            "log": {".features": ["log"], ".srcs": ["log.c"]}
        },
        "crypto": {
            "eal": {".features": ["eal"], ".srcs": ["eal.c"]},
            "md": {".deps": ["crypto::eal"], ".features": ["md"], ".srcs": ["md.c"]},
            "sha2": {".deps": ["crypto::eal"], ".features": ["sha2"], ".srcs": ["sha2.c"]}
        }
    }
}`

func testSetup(t *testing.T, cfgJSON string) (*catalog.Catalog, *config.Config) {
	t.Helper()
	cat, err := catalog.Read(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Read() error = %v", err)
	}
	cfg, err := config.Read(strings.NewReader(cfgJSON))
	if err != nil {
		t.Fatalf("config.Read() error = %v", err)
	}
	return cat, cfg
}

func TestResolveCOnly(t *testing.T) {
	cat, cfg := testSetup(t, `{"libs": {"hitls_crypto": {"c": ["sha2"]}}}`)

	result, err := NewRunner(nil).Resolve(cat, cfg, Options{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// sha2 pulls in its parent's dependency eal, and the base sal feature
	// is always seeded.
	if got := result.Config.Libs["hitls_crypto"].C; !reflect.DeepEqual(got, []string{"eal", "sha2"}) {
		t.Errorf("crypto c features = %v, want [eal sha2]", got)
	}
	if got := result.Config.Libs["hitls_bsl"].C; !reflect.DeepEqual(got, []string{"sal"}) {
		t.Errorf("bsl c features = %v, want [sal]", got)
	}

	mods, ok := result.Modules["hitls_crypto"]
	if !ok {
		t.Fatal("no crypto modules")
	}
	sha2 := mods[catalog.ModuleKey{Top: "crypto", Sub: "sha2"}]
	if sha2 == nil {
		t.Fatal("crypto::sha2 not enabled")
	}
	if sha2.Kind != catalog.KindC {
		t.Errorf("sha2 kind = %q, want c", sha2.Kind)
	}
	wantDeps := []catalog.ModuleKey{{Top: "crypto", Sub: "eal"}}
	if !reflect.DeepEqual(sha2.Deps, wantDeps) {
		t.Errorf("sha2 deps = %v, want %v", sha2.Deps, wantDeps)
	}

	for _, macro := range []string{"-DHITLS_CRYPTO_SHA2", "-DHITLS_CRYPTO_EAL", "-DHITLS_BSL_SAL"} {
		if !slices.Contains(result.Macros, macro) {
			t.Errorf("macro %s missing from %v", macro, result.Macros)
		}
	}
	if result.Report.RunID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("run ID not assigned")
	}
}

func TestResolveDefaultsReported(t *testing.T) {
	cat, cfg := testSetup(t, `{"libs": {"hitls_bsl": {"c": ["log"]}}}`)

	result, err := NewRunner(nil).Resolve(cat, cfg, Options{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	var defaulted []string
	for _, w := range result.Report.Warnings {
		if strings.Contains(w, "default value") {
			defaulted = append(defaulted, w)
		}
	}
	// endian, libType, and asmType were all absent.
	if len(defaulted) != 3 {
		t.Errorf("defaulted = %v, want 3 warnings", defaulted)
	}
}

func TestResolveAsm(t *testing.T) {
	cat, cfg := testSetup(t, `{"endian": "little", "libs": {"hitls_crypto": {"c": ["sha2"]}}}`)

	result, err := NewRunner(nil).Resolve(cat, cfg, Options{AsmType: "x8664"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	asm := result.Config.Libs["hitls_crypto"].Asm
	if len(asm) != 1 || asm[0].Feature != "sha2" {
		t.Fatalf("crypto asm = %v, want [sha2]", asm)
	}
	for _, macro := range []string{"-DHITLS_CRYPTO_SHA2_ASM", "-DHITLS_CRYPTO_SHA2_X8664"} {
		if !slices.Contains(result.Macros, macro) {
			t.Errorf("macro %s missing from %v", macro, result.Macros)
		}
	}

	sha2 := result.Modules["hitls_crypto"][catalog.ModuleKey{Top: "crypto", Sub: "sha2"}]
	if sha2 == nil || sha2.Kind != "x8664" {
		t.Errorf("crypto::sha2 = %+v, want x8664 kind", sha2)
	}
}

func TestResolveNoAsmFlag(t *testing.T) {
	cat, cfg := testSetup(t, `{"asmType": "x8664", "libs": {"hitls_crypto": {"c": ["sha2"], "asm": ["sha2"]}}}`)

	result, err := NewRunner(nil).Resolve(cat, cfg, Options{NoAsm: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Config.AsmType != catalog.NoAsm {
		t.Errorf("asmType = %q, want no_asm", result.Config.AsmType)
	}
	if asm := result.Config.Libs["hitls_crypto"].Asm; len(asm) != 0 {
		t.Errorf("asm list = %v, want empty", asm)
	}
}

func TestResolveDisable(t *testing.T) {
	cat, cfg := testSetup(t, `{"libs": {"hitls_crypto": {"c": ["sha2"]}}}`)

	result, err := NewRunner(nil).Resolve(cat, cfg, Options{Disables: []string{"sha2"}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := result.Config.Libs["hitls_crypto"].C; !reflect.DeepEqual(got, []string{"eal"}) {
		t.Errorf("crypto c features = %v, want [eal]", got)
	}
	if _, ok := result.Modules["hitls_crypto"][catalog.ModuleKey{Top: "crypto", Sub: "sha2"}]; ok {
		t.Error("crypto::sha2 should not be enabled")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		cfgJSON  string
		opts     Options
		wantCode errors.Code
	}{
		{
			name:     "empty selection",
			cfgJSON:  `{}`,
			wantCode: errors.ErrCodeInvalidConfig,
		},
		{
			name:     "unknown enable",
			cfgJSON:  `{}`,
			opts:     Options{Enables: []string{"quantum"}},
			wantCode: errors.ErrCodeUnknownFeature,
		},
		{
			name:     "asm type conflict",
			cfgJSON:  `{"asmType": "x8664", "libs": {"hitls_crypto": {"c": ["sha2"]}}}`,
			opts:     Options{AsmType: "armv8"},
			wantCode: errors.ErrCodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, cfg := testSetup(t, tt.cfgJSON)
			_, err := NewRunner(nil).Resolve(cat, cfg, tt.opts)
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("Resolve() code = %v (err %v), want %v", errors.GetCode(err), err, tt.wantCode)
			}
		})
	}
}

func TestResolveEnableAll(t *testing.T) {
	cat, cfg := testSetup(t, `{}`)

	result, err := NewRunner(nil).Resolve(cat, cfg, Options{Enables: []string{config.EnableAll}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if result.Config.System == "" || result.Config.Bits == 0 {
		t.Errorf("system/bits not defaulted for all build: %q/%d", result.Config.System, result.Config.Bits)
	}
	want := []string{"log", "sal"}
	if got := result.Config.Libs["hitls_bsl"].C; !reflect.DeepEqual(got, want) {
		t.Errorf("bsl c features = %v, want %v", got, want)
	}
}
