// Package pkg provides the core libraries for buildplan configuration resolution.
//
// # Overview
//
// buildplan resolves which optional compile-time features, assembly
// implementations, and source modules a multi-library native build must
// include, and which compiler/linker flags apply. The pkg directory is
// organized leaf-first:
//
//  1. [errors] - Structured error codes shared by every layer
//  2. [catalog] - Static feature/module catalog, closures, cycle detection
//  3. [config] - User build configuration: validation, enable-set algebra,
//     parent-retention pruning, module and macro derivation
//  4. [options] - Compiler/linker flag catalogs and the ordered merge engine
//  5. [plan] - Pipeline orchestrating one resolution run end to end
//  6. [modgraph] - DOT/SVG export of the enabled-module dependency graph
//
// # Architecture
//
// The typical data flow through buildplan:
//
//	feature catalog JSON + user config JSON
//	         ↓
//	    [catalog] package (parse, index, validate the static description)
//	         ↓
//	    [config] package (validate → enable → prune → modules/macros)
//	         ↓
//	    [options] package (base flags ∪ user delta, order-preserving)
//	         ↓
//	    resolved config / module map / macro list / merged flags
//
// All catalog and configuration structures are read fully into memory before
// resolution begins; the core performs no I/O mid-algorithm. Running several
// independent resolutions in parallel against one shared catalog is safe: the
// catalog is immutable after construction.
//
// # Quick Start
//
//	cat, _ := catalog.Load("feature.json")
//	cfg, _ := config.Load("feature_config.json")
//	result, err := plan.NewRunner(logger).Resolve(cat, cfg, plan.Options{
//	    Enables: []string{"sha2"},
//	})
//
// [errors]: https://pkg.go.dev/github.com/hitls-tools/buildplan/pkg/errors
// [catalog]: https://pkg.go.dev/github.com/hitls-tools/buildplan/pkg/catalog
// [config]: https://pkg.go.dev/github.com/hitls-tools/buildplan/pkg/config
// [options]: https://pkg.go.dev/github.com/hitls-tools/buildplan/pkg/options
// [plan]: https://pkg.go.dev/github.com/hitls-tools/buildplan/pkg/plan
// [modgraph]: https://pkg.go.dev/github.com/hitls-tools/buildplan/pkg/modgraph
package pkg
