// Package modgraph renders the enabled-module dependency graph as Graphviz
// DOT or SVG. One cluster per library, one edge per dependency-closure
// entry.
package modgraph

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/hitls-tools/buildplan/pkg/catalog"
	"github.com/hitls-tools/buildplan/pkg/config"
	"github.com/hitls-tools/buildplan/pkg/errors"
)

// Options configures graph rendering.
type Options struct {
	// Detailed includes the implementation kind and instruction set in node
	// labels. When false, only the module key is shown.
	Detailed bool
}

// ToDOT converts an enabled-module map to Graphviz DOT. Libraries become
// clusters and dependency-closure entries become edges. Output is fully
// deterministic: libraries, modules, and edges are emitted in sorted order.
func ToDOT(byLib map[string]map[catalog.ModuleKey]*config.ModuleBuild, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph modules {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("\n")

	libs := make([]string, 0, len(byLib))
	for lib := range byLib {
		libs = append(libs, lib)
	}
	sort.Strings(libs)

	type edge struct{ from, to string }
	var edges []edge
	for i, lib := range libs {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", lib)
		for _, key := range sortedModuleKeys(byLib[lib]) {
			mb := byLib[lib][key]
			fmt.Fprintf(&buf, "    %q [label=%q];\n", key.String(), fmtLabel(key, mb, opts.Detailed))
			for _, dep := range mb.Deps {
				edges = append(edges, edge{from: key.String(), to: dep.String()})
			}
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})
	for _, e := range edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.from, e.to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(key catalog.ModuleKey, mb *config.ModuleBuild, detailed bool) string {
	if !detailed {
		return key.String()
	}
	parts := []string{key.String(), mb.Kind}
	if mb.InstructionSet != "" {
		parts = append(parts, mb.InstructionSet)
	}
	return strings.Join(parts, "\n")
}

func sortedModuleKeys(mods map[catalog.ModuleKey]*config.ModuleBuild) []catalog.ModuleKey {
	keys := make([]catalog.ModuleKey, 0, len(mods))
	for key := range mods {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return buf.Bytes(), nil
}
