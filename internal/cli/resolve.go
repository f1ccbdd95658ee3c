package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/config"
	"github.com/hitls-tools/buildplan/pkg/errors"
	"github.com/hitls-tools/buildplan/pkg/plan"
)

// resolveOpts holds the flags shared by every command that runs a
// resolution: the input files and the enable/disable/assembly selection.
type resolveOpts struct {
	catalogPath string
	configPath  string
	enables     []string
	disables    []string
	asmType     string
	asmFeatures []string
	noAsm       bool
}

// register adds the shared resolution flags to cmd.
func (o *resolveOpts) register(cmd *cobra.Command, settings *Settings) {
	cmd.Flags().StringVar(&o.catalogPath, "catalog", settings.Catalog, "feature catalog file (feature.json)")
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "feature configuration file (defaults when omitted)")
	cmd.Flags().StringSliceVarP(&o.enables, "enable", "e", nil, "features, libraries, or 'all' to enable")
	cmd.Flags().StringSliceVarP(&o.disables, "disable", "d", nil, "features to disable")
	cmd.Flags().StringVar(&o.asmType, "asm-type", "", "assembly implementation type")
	cmd.Flags().StringSliceVar(&o.asmFeatures, "asm", nil, "assembly features (feature or feature::instruction_set)")
	cmd.Flags().BoolVar(&o.noAsm, "no-asm", false, "force a pure C build")
}

// run loads the inputs and executes one resolution.
func (o *resolveOpts) run(c *CLI) (*plan.Result, *catalog.Catalog, error) {
	if o.catalogPath == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig,
			"no catalog file: pass --catalog or set it in settings.toml")
	}
	cat, err := catalog.Load(o.catalogPath)
	if err != nil {
		return nil, nil, err
	}

	cfg := config.Default()
	if o.configPath != "" {
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, nil, err
		}
	}

	asm := make([]config.AsmEntry, len(o.asmFeatures))
	for i, s := range o.asmFeatures {
		asm[i] = config.ParseAsmEntry(s)
	}

	result, err := c.newRunner().Resolve(cat, cfg, plan.Options{
		Enables:     o.enables,
		Disables:    o.disables,
		AsmType:     o.asmType,
		AsmFeatures: asm,
		NoAsm:       o.noAsm,
	})
	if err != nil {
		return nil, nil, err
	}
	return result, cat, nil
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts
	var outDir string
	var printMacros bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a feature configuration into a build plan",
		Long: `Resolve a feature configuration against the catalog.

Writes the resolved configuration and the enabled-module map to the output
directory and reports every defaulted key as a warning.

Examples:
  buildplan resolve --catalog feature.json -e tls
  buildplan resolve --catalog feature.json -c my_config.json --asm-type x8664
  buildplan resolve --catalog feature.json -e all --no-asm -o build`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := newProgress(c.Logger)
			result, _, err := opts.run(c)
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			prog.done(fmt.Sprintf("Resolved %d libraries", len(result.Modules)))
			printKeyValue("asm type", result.Config.AsmType)
			printKeyValue("macros", fmt.Sprintf("%d", len(result.Macros)))

			for _, w := range result.Report.Warnings {
				printWarning("%s", w)
			}

			cfgPath := filepath.Join(outDir, "feature_config.json")
			if err := writeConfig(result.Config, cfgPath); err != nil {
				return err
			}
			modsPath := filepath.Join(outDir, "modules.json")
			if err := writeModules(result, modsPath); err != nil {
				return err
			}

			printSuccess("Build plan written")
			printFile(cfgPath)
			printFile(modsPath)
			if printMacros {
				for _, m := range result.Macros {
					fmt.Println(m)
				}
			}
			return nil
		},
	}

	opts.register(cmd, c.settings)
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", c.settings.OutputDir, "output directory")
	cmd.Flags().BoolVar(&printMacros, "macros", false, "print the macro list to stdout")

	return cmd
}

func writeConfig(cfg *config.Config, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return cfg.WriteJSON(out)
}

func writeModules(result *plan.Result, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return config.WriteModulesJSON(out, result.Config, result.Modules)
}
