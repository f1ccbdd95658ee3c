package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/config"
	"github.com/hitls-tools/buildplan/pkg/errors"
	"github.com/hitls-tools/buildplan/pkg/plan"
)

// List styles.
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// featureRow is one selectable entry in the feature picker.
type featureRow struct {
	Name    string
	Lib     string
	Parent  string
	Enabled bool
}

// FeatureListModel is the bubbletea model for interactive feature selection.
type FeatureListModel struct {
	Rows      []featureRow
	Cursor    int
	Height    int
	Offset    int
	Confirmed bool
}

// NewFeatureListModel creates a feature picker over the catalog's features,
// grouped by library and sorted within each.
func NewFeatureListModel(cat *catalog.Catalog) FeatureListModel {
	var rows []featureRow
	for _, lib := range cat.Libraries() {
		for _, name := range cat.LibraryFeatures(lib) {
			f, _ := cat.Feature(name)
			rows = append(rows, featureRow{Name: name, Lib: lib, Parent: f.Parent})
		}
	}
	return FeatureListModel{Rows: rows, Height: 15}
}

// Enabled returns the names of the toggled-on features.
func (m FeatureListModel) Enabled() []string {
	var enabled []string
	for _, row := range m.Rows {
		if row.Enabled {
			enabled = append(enabled, row.Name)
		}
	}
	return enabled
}

func (m FeatureListModel) Init() tea.Cmd {
	return nil
}

func (m FeatureListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ":
			m.Rows[m.Cursor].Enabled = !m.Rows[m.Cursor].Enabled
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m FeatureListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Features"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  ⏎ resolve  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	for i := m.Offset; i < end; i++ {
		row := m.Rows[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := "[ ]"
		if row.Enabled {
			mark = "[" + StyleSuccess.Render("x") + "]"
		}

		name := row.Name
		if row.Parent != "" {
			name = "  " + name
		}
		line := fmt.Sprintf("%s%s %-30s %s", cursor, mark, name, listDimStyle.Render(row.Lib))

		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case row.Enabled:
			b.WriteString(listNormalStyle.Render(line))
		default:
			b.WriteString(listDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d enabled", m.Cursor+1, len(m.Rows), len(m.Enabled()))))

	return b.String()
}

// featuresCommand creates the interactive features command.
func (c *CLI) featuresCommand() *cobra.Command {
	var catalogPath string
	var outDir string

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Pick enabled features interactively",
		Long: `Pick enabled features interactively.

Opens a picker over every feature the catalog defines; the confirmed
selection is resolved exactly like 'resolve --enable ...' and the build plan
is written to the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogPath = orSetting(catalogPath, c.settings.Catalog)
			if catalogPath == "" {
				return errors.New(errors.ErrCodeInvalidConfig,
					"no catalog file: pass --catalog or set it in settings.toml")
			}
			cat, err := catalog.Load(catalogPath)
			if err != nil {
				return err
			}

			model, err := tea.NewProgram(NewFeatureListModel(cat), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			picked := model.(FeatureListModel)
			if !picked.Confirmed {
				return nil
			}
			enables := picked.Enabled()
			if len(enables) == 0 {
				printWarning("nothing selected")
				return nil
			}

			result, err := c.newRunner().Resolve(cat, config.Default(), plan.Options{Enables: enables})
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
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
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "feature catalog file (feature.json)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", c.settings.OutputDir, "output directory")

	return cmd
}
