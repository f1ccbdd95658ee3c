package catalog

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hitls-tools/buildplan/pkg/errors"
)

const testCatalog = `{
    "libs": {
        "hitls_bsl": {
            "features": {
                "c": {
                    "sal": {"sal_mem": null, "sal_thread": null},
                    "uio": {"deps": ["sal"], "uio_buffer": null}
                }
            }
        },
        "hitls_crypto": {
            "features": {
                "c": {
                    "bn": null,
                    "eal": null,
                    "md": {
                        "deps": ["eal"],
                        "sha2": {"opts": ["bn", "eal"]},
                        "sha3": null
                    },
                    "drbg": {"deps": ["md"]}
                },
                "x8664": {
                    "bn": null,
                    "sha2": {"ins_set": ["x8664", "avx512"]}
                }
            }
        }
    },
    "modules": {
        "bsl": {
            "sal": {".features": ["sal"], ".srcs": ["sal/sal.c"]},
            "uio": {".deps": ["bsl::sal"], ".features": ["uio"], ".srcs": ["uio/uio.c"]}
        },
        "crypto": {
            "eal": {
                ".deps": ["bsl::sal", "platform::Secure_C"],
                ".features": ["eal"],
                ".srcs": {"public": ["eal/eal.c"]}
            },
            "md": {
                ".deps": ["crypto::eal"],
                ".features": ["md"],
                ".srcs": {"public": ["md/md.c"], "no_asm": ["md/md_c.c"]}
            },
            "sha2": {
                ".deps": ["crypto::md"],
                ".features": ["sha2"],
                ".srcs": {
                    "public": ["sha2/sha2.c"],
                    "no_asm": ["sha2/sha2_c.c"],
                    "x8664": {"x8664": ["sha2/sha2_x86.S"], "avx512": ["sha2/sha2_avx.S"]}
                }
            },
            "bn": {".features": ["bn"], ".srcs": ["bn/bn.c"]}
        }
    }
}`

func testRead(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Read(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return cat
}

func TestReadShape(t *testing.T) {
	cat := testRead(t)

	if got := cat.Libraries(); !reflect.DeepEqual(got, []string{"hitls_bsl", "hitls_crypto"}) {
		t.Errorf("Libraries() = %v", got)
	}
	if got := cat.AsmTypes(); !reflect.DeepEqual(got, []string{NoAsm, "x8664"}) {
		t.Errorf("AsmTypes() = %v", got)
	}
	if !cat.HasAsmType("x8664") || cat.HasAsmType("armv8") {
		t.Error("HasAsmType() wrong")
	}

	md, ok := cat.Feature("md")
	if !ok {
		t.Fatal("md not found")
	}
	if md.Lib != "hitls_crypto" || md.Parent != "" {
		t.Errorf("md = %+v", md)
	}
	if !reflect.DeepEqual(md.Children, []string{"sha2", "sha3"}) {
		t.Errorf("md children = %v, want declared order", md.Children)
	}
	if !reflect.DeepEqual(md.Deps, []string{"eal"}) {
		t.Errorf("md deps = %v", md.Deps)
	}

	sha2, _ := cat.Feature("sha2")
	if sha2.Parent != "md" {
		t.Errorf("sha2 parent = %q", sha2.Parent)
	}
	if !reflect.DeepEqual(sha2.Opts, [][]string{{"bn", "eal"}}) {
		t.Errorf("sha2 opts = %v", sha2.Opts)
	}
	if !sha2.SupportsKind(KindC) || !sha2.SupportsKind("x8664") {
		t.Error("sha2 kinds wrong")
	}
	if got := sha2.InstructionSets("x8664"); !reflect.DeepEqual(got, []string{"x8664", "avx512"}) {
		t.Errorf("sha2 x8664 ins sets = %v", got)
	}
	if !reflect.DeepEqual(sha2.Modules, []ModuleKey{{Top: "crypto", Sub: "sha2"}}) {
		t.Errorf("sha2 modules = %v", sha2.Modules)
	}

	if got := cat.LibraryFeatures("hitls_bsl"); !reflect.DeepEqual(got, []string{"sal", "sal_mem", "sal_thread", "uio", "uio_buffer"}) {
		t.Errorf("LibraryFeatures(hitls_bsl) = %v", got)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode errors.Code
	}{
		{
			name:     "missing sections",
			input:    `{"libs": {}}`,
			wantCode: errors.ErrCodeMalformedCatalog,
		},
		{
			name: "duplicate feature across libs",
			input: `{
                "libs": {
                    "hitls_bsl": {"features": {"c": {"sal": null}}},
                    "hitls_crypto": {"features": {"c": {"sal": null}}}
                },
                "modules": {}
            }`,
			wantCode: errors.ErrCodeDuplicateFeature,
		},
		{
			name: "unknown feature in module",
			input: `{
                "libs": {"hitls_bsl": {"features": {"c": {"sal": null}}}},
                "modules": {"bsl": {"sal": {".features": ["ghost"]}}}
            }`,
			wantCode: errors.ErrCodeUnknownFeature,
		},
		{
			name: "library without features",
			input: `{
                "libs": {"hitls_bsl": {}},
                "modules": {}
            }`,
			wantCode: errors.ErrCodeMalformedCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("Read() code = %v (err %v), want %v", errors.GetCode(err), err, tt.wantCode)
			}
		})
	}
}

func TestParseModuleKey(t *testing.T) {
	key, err := ParseModuleKey("crypto::sha2")
	if err != nil {
		t.Fatalf("ParseModuleKey() error = %v", err)
	}
	if key != (ModuleKey{Top: "crypto", Sub: "sha2"}) {
		t.Errorf("key = %v", key)
	}
	for _, bad := range []string{"crypto", "::sha2", "crypto::"} {
		if _, err := ParseModuleKey(bad); errors.GetCode(err) != errors.ErrCodeUnknownModule {
			t.Errorf("ParseModuleKey(%q) should fail", bad)
		}
	}
}

func TestRelatedFeatures(t *testing.T) {
	cat := testRead(t)

	tests := []struct {
		seed string
		want []string
	}{
		// A child pulls in its parent's dependencies, not the parent itself.
		{seed: "sha2", want: []string{"eal", "sha2"}},
		// A parent pulls in its children and its own dependencies.
		{seed: "md", want: []string{"eal", "md", "sha2", "sha3"}},
		// Dependencies expand recursively.
		{seed: "drbg", want: []string{"drbg", "eal", "md", "sha2", "sha3"}},
		{seed: "sal", want: []string{"sal", "sal_mem", "sal_thread"}},
		{seed: "uio_buffer", want: []string{"sal", "sal_mem", "sal_thread", "uio_buffer"}},
	}

	for _, tt := range tests {
		t.Run(tt.seed, func(t *testing.T) {
			related, err := cat.RelatedFeatures(tt.seed)
			if err != nil {
				t.Fatalf("RelatedFeatures(%q) error = %v", tt.seed, err)
			}
			got := make([]string, 0, len(related))
			for name := range related {
				got = append(got, name)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("RelatedFeatures(%q) = %v, want %v", tt.seed, got, tt.want)
			}
			for _, name := range tt.want {
				if !related[name] {
					t.Errorf("RelatedFeatures(%q) missing %q", tt.seed, name)
				}
			}
		})
	}

	if _, err := cat.RelatedFeatures("ghost"); errors.GetCode(err) != errors.ErrCodeUnknownFeature {
		t.Errorf("unknown seed code = %v", errors.GetCode(err))
	}
}

func TestRelatedFeaturesCycle(t *testing.T) {
	const cyclic = `{
        "libs": {"hitls_crypto": {"features": {"c": {
            "a": {"deps": ["b"]},
            "b": {"deps": ["a"]}
        }}}},
        "modules": {}
    }`
	cat, err := Read(strings.NewReader(cyclic))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	_, err = cat.RelatedFeatures("a")
	if errors.GetCode(err) != errors.ErrCodeCyclicDependency {
		t.Fatalf("code = %v (err %v), want CYCLIC_DEPENDENCY", errors.GetCode(err), err)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("cycle error should carry the path: %v", err)
	}
}

func TestFeatureModules(t *testing.T) {
	cat := testRead(t)
	uses := make(map[ModuleKey]ModuleUse)
	if err := cat.FeatureModules("md", KindC, "", uses); err != nil {
		t.Fatalf("FeatureModules() error = %v", err)
	}
	// md has no own module entry beyond crypto::md, but its children bring
	// crypto::sha2 along.
	for _, key := range []ModuleKey{{Top: "crypto", Sub: "md"}, {Top: "crypto", Sub: "sha2"}} {
		if _, ok := uses[key]; !ok {
			t.Errorf("missing module %s", key)
		}
	}

	// A later collection for the same module wins.
	if err := cat.FeatureModules("sha2", "x8664", "avx512", uses); err != nil {
		t.Fatalf("FeatureModules() error = %v", err)
	}
	if use := uses[ModuleKey{Top: "crypto", Sub: "sha2"}]; use.Kind != "x8664" || use.InstructionSet != "avx512" {
		t.Errorf("sha2 use = %+v", use)
	}
}

func TestModuleClosure(t *testing.T) {
	cat := testRead(t)

	closure, err := cat.ModuleClosure(ModuleKey{Top: "crypto", Sub: "sha2"}, nil)
	if err != nil {
		t.Fatalf("ModuleClosure() error = %v", err)
	}
	want := []ModuleKey{
		{Top: "crypto", Sub: "md"},
		{Top: "crypto", Sub: "eal"},
		{Top: "bsl", Sub: "sal"},
		{Top: "platform", Sub: "Secure_C"},
	}
	if len(closure) != len(want) {
		t.Fatalf("closure = %v, want %v", closure, want)
	}
	for _, key := range want {
		if !closure[key] {
			t.Errorf("closure missing %s", key)
		}
	}
	if closure[ModuleKey{Top: "crypto", Sub: "sha2"}] {
		t.Error("closure must not contain the starting module")
	}

	// A module with no dependencies has an empty closure.
	closure, err = cat.ModuleClosure(ModuleKey{Top: "crypto", Sub: "bn"}, nil)
	if err != nil {
		t.Fatalf("ModuleClosure() error = %v", err)
	}
	if len(closure) != 0 {
		t.Errorf("bn closure = %v, want empty", closure)
	}

	if _, err := cat.ModuleClosure(ModuleKey{Top: "crypto", Sub: "ghost"}, nil); errors.GetCode(err) != errors.ErrCodeUnknownModule {
		t.Errorf("unknown module code = %v", errors.GetCode(err))
	}
}

func TestModuleClosureCycle(t *testing.T) {
	const cyclic = `{
        "libs": {"hitls_crypto": {"features": {"c": {"a": null, "b": null}}}},
        "modules": {"crypto": {
            "a": {".deps": ["crypto::b"], ".features": ["a"]},
            "b": {".deps": ["crypto::a"], ".features": ["b"]}
        }}
    }`
	cat, err := Read(strings.NewReader(cyclic))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	_, err = cat.ModuleClosure(ModuleKey{Top: "crypto", Sub: "a"}, nil)
	if errors.GetCode(err) != errors.ErrCodeCyclicDependency {
		t.Fatalf("code = %v (err %v), want CYCLIC_DEPENDENCY", errors.GetCode(err), err)
	}
}

func TestCheckClosureEnabled(t *testing.T) {
	sha2 := ModuleKey{Top: "crypto", Sub: "sha2"}
	md := ModuleKey{Top: "crypto", Sub: "md"}
	secureC := ModuleKey{Top: "platform", Sub: "Secure_C"}

	ok := map[string]map[ModuleKey][]ModuleKey{
		"hitls_crypto": {sha2: {md, secureC}, md: nil},
	}
	if err := CheckClosureEnabled(ok, nil); err != nil {
		t.Errorf("CheckClosureEnabled() error = %v", err)
	}

	missing := map[string]map[ModuleKey][]ModuleKey{
		"hitls_crypto": {sha2: {md}},
	}
	err := CheckClosureEnabled(missing, nil)
	if errors.GetCode(err) != errors.ErrCodeDisabledDependency {
		t.Fatalf("code = %v, want DISABLED_DEPENDENCY", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "crypto::md is disabled") {
		t.Errorf("error should name the disabled module: %v", err)
	}
}

func TestModuleSources(t *testing.T) {
	cat := testRead(t)
	sha2 := ModuleKey{Top: "crypto", Sub: "sha2"}

	tests := []struct {
		name     string
		key      ModuleKey
		kind     string
		ins      string
		want     []string
		wantCode errors.Code
	}{
		{
			name: "flat list",
			key:  ModuleKey{Top: "bsl", Sub: "sal"},
			kind: KindC,
			want: []string{"sal/sal.c"},
		},
		{
			name: "c appends no_asm",
			key:  sha2,
			kind: KindC,
			want: []string{"sha2/sha2.c", "sha2/sha2_c.c"},
		},
		{
			name: "named instruction set",
			key:  sha2,
			kind: "x8664",
			ins:  "avx512",
			want: []string{"sha2/sha2.c", "sha2/sha2_avx.S"},
		},
		{
			name: "first variant when unnamed",
			key:  sha2,
			kind: "x8664",
			want: []string{"sha2/sha2.c", "sha2/sha2_x86.S"},
		},
		{
			name:     "missing kind",
			key:      sha2,
			kind:     "armv8",
			wantCode: errors.ErrCodeMissingSourceVariant,
		},
		{
			name:     "missing instruction set",
			key:      sha2,
			kind:     "x8664",
			ins:      "sse2",
			wantCode: errors.ErrCodeMissingSourceVariant,
		},
		{
			name:     "unknown module",
			key:      ModuleKey{Top: "crypto", Sub: "ghost"},
			kind:     KindC,
			wantCode: errors.ErrCodeUnknownModule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cat.ModuleSources(tt.key, tt.kind, tt.ins)
			if tt.wantCode != "" {
				if errors.GetCode(err) != tt.wantCode {
					t.Errorf("code = %v, want %v", errors.GetCode(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ModuleSources() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ModuleSources() = %v, want %v", got, tt.want)
			}
		})
	}
}
