// Package plan orchestrates one build-plan resolution run.
//
// The run applies the configuration pipeline in a fixed order: defaults,
// validation, enable-set computation, write-back, pruning, constraint
// checks, and finally module and macro derivation. Each stage is a plain
// function from the config and catalog packages; this package only
// sequences them, logs progress, and collects the warnings into a report.
//
// # Usage
//
//	runner := plan.NewRunner(logger)
//	result, err := runner.Resolve(cat, cfg, plan.Options{
//	    Enables: []string{"tls"},
//	    AsmType: "x8664",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Config.WriteJSON(os.Stdout)
package plan

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/config"
)

// Options selects what one resolution run enables, disables, and targets.
type Options struct {
	// Enables widens the enable set: feature names, library names, or the
	// sentinel "all".
	Enables []string

	// Disables subtracts features after the enable set is written back.
	Disables []string

	// AsmType overrides the configuration's assembly type for this run.
	AsmType string

	// AsmFeatures restricts assembly to an explicit list instead of every
	// enabled feature that supports the assembly type.
	AsmFeatures []config.AsmEntry

	// NoAsm forces a pure C build regardless of the configuration.
	NoAsm bool

	// External names modules resolved outside the catalog. Nil selects the
	// default allow-list.
	External catalog.ExternalSet
}

// Result is the output of one resolution run.
type Result struct {
	// Config is the resolved configuration, rewritten in place.
	Config *config.Config

	// Modules maps each library to its enabled modules and their build
	// descriptions.
	Modules map[string]map[catalog.ModuleKey]*config.ModuleBuild

	// Macros is the sorted preprocessor macro list of the resolved
	// configuration.
	Macros []string

	// Report carries run identity, warnings, and timing.
	Report Report
}

// Report describes how a run went, independent of its outputs.
type Report struct {
	RunID    uuid.UUID
	Warnings []string
	Duration time.Duration
}

// Runner executes resolution runs.
type Runner struct {
	logger *log.Logger
}

// NewRunner creates a Runner. A nil logger discards all output.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{logger: logger}
}

// Resolve runs the full pipeline against cat, rewriting cfg in place.
//
// The stage order is fixed: defaults → assembly-type selection → validation
// → enable-set computation → c and assembly write-back → prune/update →
// scalar requirement checks → alternative-group check → module and macro
// derivation. The first failing stage aborts the run; there are no partial
// results.
func (r *Runner) Resolve(cat *catalog.Catalog, cfg *config.Config, opts Options) (*Result, error) {
	start := time.Now()
	report := Report{RunID: uuid.New()}
	r.logger.Debug("starting resolution run", "run_id", report.RunID)

	report.Warnings = append(report.Warnings, cfg.ApplyDefaults()...)
	if opts.NoAsm {
		config.FilterNoAsm(cfg)
	}
	if opts.AsmType != "" {
		if err := config.SetAsmType(cfg, opts.AsmType); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg, cat); err != nil {
		return nil, err
	}

	enabled, asmFromConfig, err := config.EnabledFeatures(cfg, cat, opts.Enables)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("computed enable set", "features", len(enabled))

	if err := config.SetCFeatures(cfg, cat, enabled); err != nil {
		return nil, err
	}
	if cfg.AsmType == catalog.NoAsm {
		config.FilterNoAsm(cfg)
	} else {
		added, err := config.SetAsmFeatures(cfg, cat, enabled, asmFromConfig, opts.AsmFeatures)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("selected assembly features", "asm_type", cfg.AsmType, "features", len(added))
	}

	warnings, err := config.Update(cfg, cat, opts.Enables, opts.Disables)
	if err != nil {
		return nil, err
	}
	report.Warnings = append(report.Warnings, warnings...)

	if err := config.CheckBitsRequirement(cfg); err != nil {
		return nil, err
	}
	if err := config.CheckSystemRequirement(cfg); err != nil {
		return nil, err
	}
	if err := config.CheckFeatureOptions(cfg, cat); err != nil {
		return nil, err
	}

	modules, err := config.EnabledModules(cfg, cat, opts.External)
	if err != nil {
		return nil, err
	}
	macros := config.Macros(cfg)

	report.Duration = time.Since(start)
	r.logger.Info("resolution complete",
		"run_id", report.RunID,
		"libs", len(modules),
		"macros", len(macros),
		"duration", report.Duration)
	for _, w := range report.Warnings {
		r.logger.Warn(w)
	}

	return &Result{
		Config:  cfg,
		Modules: modules,
		Macros:  macros,
		Report:  report,
	}, nil
}
