package modgraph

import (
	"strings"
	"testing"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/config"
)

func testModules() map[string]map[catalog.ModuleKey]*config.ModuleBuild {
	eal := catalog.ModuleKey{Top: "crypto", Sub: "eal"}
	sha2 := catalog.ModuleKey{Top: "crypto", Sub: "sha2"}
	sal := catalog.ModuleKey{Top: "bsl", Sub: "sal"}
	return map[string]map[catalog.ModuleKey]*config.ModuleBuild{
		"hitls_crypto": {
			eal:  {Kind: catalog.KindC},
			sha2: {Kind: "x8664", InstructionSet: "avx512", Deps: []catalog.ModuleKey{eal}},
		},
		"hitls_bsl": {
			sal: {Kind: catalog.KindC},
		},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testModules(), Options{})

	for _, want := range []string{
		`label="hitls_bsl"`,
		`label="hitls_crypto"`,
		`"crypto::sha2" [label="crypto::sha2"]`,
		`"crypto::sha2" -> "crypto::eal";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if !strings.HasPrefix(dot, "digraph modules {") {
		t.Errorf("unexpected header:\n%s", dot)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testModules(), Options{Detailed: true})
	if !strings.Contains(dot, `label="crypto::sha2\nx8664\navx512"`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestToDOTDeterministic(t *testing.T) {
	first := ToDOT(testModules(), Options{})
	for range 10 {
		if got := ToDOT(testModules(), Options{}); got != first {
			t.Fatal("DOT output not deterministic")
		}
	}
}
