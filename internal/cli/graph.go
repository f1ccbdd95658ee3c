package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitls-tools/buildplan/pkg/errors"
	"github.com/hitls-tools/buildplan/pkg/modgraph"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts resolveOpts
	var format string
	var output string
	var detailed bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the enabled-module dependency graph",
		Long: `Render the enabled-module dependency graph as DOT or SVG.

Runs the same resolution as the resolve command, then renders one cluster
per library with an edge for every dependency-closure entry.

Examples:
  buildplan graph --catalog feature.json -e tls
  buildplan graph --catalog feature.json -e all -f svg -o modules.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := opts.run(c)
			if err != nil {
				return err
			}

			dot := modgraph.ToDOT(result.Modules, modgraph.Options{Detailed: detailed})
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()

			switch format {
			case "dot":
				_, err = fmt.Fprint(out, dot)
			case "svg":
				var svg []byte
				if svg, err = modgraph.RenderSVG(cmd.Context(), dot); err == nil {
					_, err = out.Write(svg)
				}
			default:
				return errors.New(errors.ErrCodeInvalidConfig, "invalid format: %q (must be dot or svg)", format)
			}
			if err != nil {
				return err
			}
			if output != "" {
				printSuccess("Graph written")
				printFile(output)
			}
			return nil
		},
	}

	opts.register(cmd, c.settings)
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format (dot, svg)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include kind and instruction set in node labels")

	return cmd
}
