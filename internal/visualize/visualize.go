// Package visualize serializes a pipeline's dependency graph into
// diagram notations. Pure text generation; rendering belongs to
// whatever consumes the output.
package visualize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pipelens-dev/pipelens/internal/dag"
	"github.com/pipelens-dev/pipelens/pkg/core"
)

// Format selects the diagram notation.
type Format string

// Supported formats.
const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
	FormatASCII   Format = "ascii"
)

// Render serializes the pipeline graph in the requested format.
func Render(p *core.Pipeline, g *dag.Graph, format Format) (string, error) {
	switch format {
	case FormatMermaid:
		return mermaid(p), nil
	case FormatDOT:
		return dot(p), nil
	case FormatASCII:
		return ascii(p, g)
	default:
		return "", fmt.Errorf("unknown graph format %q (supported: mermaid, dot, ascii)", format)
	}
}

// mermaidID strips characters mermaid cannot carry in node IDs.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func mermaid(p *core.Pipeline) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, j := range p.Jobs {
		fmt.Fprintf(&b, "    %s[\"%s<br/>%s\"]\n",
			mermaidID(j.Name), j.Name, j.EstimatedDuration().Round(0))
	}
	for _, j := range p.Jobs {
		for _, need := range j.Needs {
			fmt.Fprintf(&b, "    %s --> %s\n", mermaidID(need), mermaidID(j.Name))
		}
	}
	return b.String()
}

func dot(p *core.Pipeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", p.Name)
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=box];\n")
	for _, j := range p.Jobs {
		fmt.Fprintf(&b, "    %q [label=\"%s\\n%s\"];\n",
			j.Name, j.Name, j.EstimatedDuration().Round(0))
	}
	for _, j := range p.Jobs {
		for _, need := range j.Needs {
			fmt.Fprintf(&b, "    %q -> %q;\n", need, j.Name)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// ascii draws the graph as execution levels, jobs in each level sorted
// by name, with their incoming edges listed.
func ascii(p *core.Pipeline, g *dag.Graph) (string, error) {
	levels, err := g.ExecutionLevels()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, level := range levels {
		sorted := append([]string(nil), level...)
		sort.Strings(sorted)

		fmt.Fprintf(&b, "Level %d:\n", i)
		for _, name := range sorted {
			job := p.Job(name)
			fmt.Fprintf(&b, "  %s (%s)", name, job.EstimatedDuration().Round(0))
			if len(job.Needs) > 0 {
				fmt.Fprintf(&b, "  <- %s", strings.Join(job.Needs, ", "))
			}
			b.WriteString("\n")
		}
		if i < len(levels)-1 {
			b.WriteString("  |\n  v\n")
		}
	}
	return b.String(), nil
}
