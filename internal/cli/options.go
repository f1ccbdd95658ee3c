package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitls-tools/buildplan/pkg/errors"
	"github.com/hitls-tools/buildplan/pkg/options"
)

// optionsCommand creates the options command.
func (c *CLI) optionsCommand() *cobra.Command {
	var (
		completePath string
		compilePath  string
		deltaPath    string
		adds         []string
		dels         []string
		linkAdds     []string
		linkDels     []string
		debug        bool
		savePath     string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "options",
		Short: "Merge the base compile file with a user delta",
		Long: `Merge compile and link options.

Loads the complete-options catalog and the base compile file, applies the
persisted delta plus any edits given on the command line, and prints the
merged flag lists. With --save, the updated delta is persisted for the next
run instead of being thrown away.

Examples:
  buildplan options --complete complete_options.json --compile compile.json
  buildplan options --add -O0 --del -O2 --save compile_config.json
  buildplan options --debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			completePath = orSetting(completePath, c.settings.Options)
			compilePath = orSetting(compilePath, c.settings.Compile)
			if completePath == "" || compilePath == "" {
				return errors.New(errors.ErrCodeInvalidConfig,
					"no option files: pass --complete and --compile or set them in settings.toml")
			}

			set, err := options.LoadOptionSet(completePath)
			if err != nil {
				return err
			}
			base, err := options.LoadCompileSet(compilePath, set)
			if err != nil {
				return err
			}
			delta := options.NewDelta()
			if deltaPath != "" {
				if delta, err = options.LoadDelta(deltaPath, set); err != nil {
					return err
				}
			}

			delta.AddFlags(set, adds...)
			delta.RemoveFlags(set, dels...)
			delta.AddLinkFlags(linkAdds...)
			delta.RemoveLinkFlags(linkDels...)
			if debug {
				delta.DebugPreset()
			}

			flags, link := options.Union(base, delta)
			if err := writeMerged(flags, link, output); err != nil {
				return err
			}

			if savePath != "" {
				out, err := openOutput(savePath)
				if err != nil {
					return err
				}
				defer out.Close()
				if err := delta.WriteJSON(out); err != nil {
					return err
				}
				printSuccess("Delta saved")
				printFile(savePath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&completePath, "complete", "", "complete-options catalog file")
	cmd.Flags().StringVar(&compilePath, "compile", "", "base compile file")
	cmd.Flags().StringVar(&deltaPath, "delta", "", "persisted delta file")
	cmd.Flags().StringSliceVar(&adds, "add", nil, "compiler flags to add")
	cmd.Flags().StringSliceVar(&dels, "del", nil, "compiler flags to remove")
	cmd.Flags().StringSliceVar(&linkAdds, "link-add", nil, "link flags to add")
	cmd.Flags().StringSliceVar(&linkDels, "link-del", nil, "link flags to remove")
	cmd.Flags().BoolVar(&debug, "debug", false, "apply the debug build preset")
	cmd.Flags().StringVar(&savePath, "save", "", "persist the updated delta to this file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

// mergedOut is the printed shape of a merge: the flat compiler flag list and
// the three link scopes.
type mergedOut struct {
	CompileFlags []string          `json:"compileFlags"`
	LinkFlags    options.LinkFlags `json:"linkFlags"`
}

func writeMerged(flags []string, link options.LinkFlags, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	data, err := json.MarshalIndent(mergedOut{CompileFlags: flags, LinkFlags: link}, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
