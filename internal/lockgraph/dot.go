package lockgraph

import (
	"fmt"
	"strconv"
	"strings"

	"notashelf.dev/flake-graph/internal/flake"
)

type RenderOptions struct {
	RankDir     string
	ColorScheme string
	Shape       string
	// MaxColor is the number of colours in ColorScheme. Duplicate group
	// sizes above it are clamped. Zero means the trailing digits of the
	// scheme name, as in "oranges9".
	MaxColor int
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		RankDir:     "LR",
		ColorScheme: "oranges9",
		Shape:       "record",
		MaxColor:    9,
	}
}

func (o RenderOptions) withDefaults() RenderOptions {
	def := DefaultRenderOptions()
	if o.RankDir == "" {
		o.RankDir = def.RankDir
	}
	if o.ColorScheme == "" {
		o.ColorScheme = def.ColorScheme
	}
	if o.Shape == "" {
		o.Shape = def.Shape
	}
	if o.MaxColor <= 0 {
		o.MaxColor = schemeSize(o.ColorScheme, def.MaxColor)
	}
	return o
}

func schemeSize(scheme string, fallback int) int {
	i := strings.LastIndexFunc(scheme, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(scheme[i+1:])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Newlines become the DOT "\n" line break escape.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// DOT renders the graph as Graphviz source. Nodes pinned to a source shared
// with other nodes get a colour from the scheme proportional to the group size.
func (g *Graph) DOT(opts RenderOptions) string {
	opts = opts.withDefaults()
	similar := g.SimilarityMap()

	var sb strings.Builder
	sb.WriteString("digraph {\n")
	sb.WriteString(fmt.Sprintf("    node [colorscheme=%s shape=%s]\n", opts.ColorScheme, opts.Shape))
	sb.WriteString(fmt.Sprintf("    rankdir=%s\n", opts.RankDir))

	for i, node := range g.Nodes {
		label := node.Name
		var attrs []string

		if node.Locked != nil {
			label += "\n" + flake.ShortURL(node.Locked.Ref)
			if url := flake.WebURL(node.Locked.Ref); url != "" {
				attrs = append(attrs, "URL = "+quote(url))
			}
		}

		if digest, ok := g.Digest(i); ok {
			if size := len(similar[digest]); size > 1 {
				attrs = append(attrs, fmt.Sprintf("color = %d", min(size, opts.MaxColor)))
			}
		}

		sb.WriteString(fmt.Sprintf("    %d [ label = %s", i, quote(label)))
		for _, attr := range attrs {
			sb.WriteString(", " + attr)
		}
		sb.WriteString(" ]\n")
	}

	for _, edge := range g.Edges {
		sb.WriteString(fmt.Sprintf("    %d -> %d [ label = %s ]\n", edge.From, edge.To, quote(edge.Label)))
	}

	sb.WriteString("}\n")
	return sb.String()
}
