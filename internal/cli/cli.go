// Package cli implements the buildplan command-line interface.
//
// This package provides commands for resolving feature configurations
// against a catalog, merging compile-option deltas, rendering the enabled
// module graph, and picking features interactively. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - resolve: Resolve a feature configuration into config, modules, and macros
//   - options: Merge the base compile file with a user delta
//   - graph: Render the enabled-module dependency graph as DOT or SVG
//   - features: Pick enabled features interactively
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/hitls-tools/buildplan/pkg/buildinfo"
	"github.com/hitls-tools/buildplan/pkg/plan"
)

// appName is the application name used for directories and display.
const appName = "buildplan"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger   *log.Logger
	settings *Settings
}

// New creates a new CLI instance with a default logger and the user's
// settings file (if any) applied.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		settings: LoadSettings(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Buildplan resolves feature configurations into build plans",
		Long:         `Buildplan takes a feature catalog and a user configuration and resolves them into a complete build plan: the closed feature set per library, the modules to compile with their dependency closures, and the preprocessor macro list.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.optionsCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.featuresCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a plan runner for CLI use.
func (c *CLI) newRunner() *plan.Runner {
	return plan.NewRunner(c.Logger)
}

// nopCloser wraps an io.Writer with a no-op Close method, making os.Stdout
// compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path. An empty path selects
// stdout; otherwise the file is created, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
