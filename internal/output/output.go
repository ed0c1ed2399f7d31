package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"notashelf.dev/flake-graph/internal/flake"
	"notashelf.dev/flake-graph/internal/lockgraph"
)

var validFormats = []string{"json", "plain", "pretty"}

type Options struct {
	OutputFormat           string
	Verbose                bool
	Merge                  bool
	FailIfMultipleVersions bool
	Quiet                  bool
	NoColor                bool
}

func ValidateOutputFormat(format string) error {
	if slices.Contains(validFormats, format) {
		return nil
	}
	return fmt.Errorf("invalid output format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}

// ShouldFailOnDuplicates reports whether the caller asked to fail and the
// graph pins some source more than once.
func ShouldFailOnDuplicates(options Options, g *lockgraph.Graph) bool {
	return options.FailIfMultipleVersions && len(g.Duplicates()) > 0
}

// Version is one node of a duplicate group.
type Version struct {
	Node       string   `json:"node"`
	Rev        string   `json:"rev,omitempty"`
	NarHash    string   `json:"narHash"`
	Dependants []string `json:"dependants"`
}

// Repository is a source pinned by more than one node.
type Repository struct {
	Digest   string    `json:"digest"`
	URL      string    `json:"url"`
	Versions []Version `json:"versions"`
}

// Name is the last path segment of the source, e.g. "nixpkgs".
func (r Repository) Name() string {
	name := r.Digest
	if i := strings.LastIndex(name, "::"); i != -1 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(strings.TrimRight(name, "/"), "/"); i != -1 {
		name = name[i+1:]
	}
	return name
}

// Dependants merges the dependants of every version.
func (r Repository) Dependants() []string {
	var all []string
	for _, v := range r.Versions {
		all = append(all, v.Dependants...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// Report is the duplicate analysis of one lock.
type Report struct {
	Dependencies        map[string][]string `json:"dependencies"`
	ReverseDependencies map[string][]string `json:"reverse_dependencies"`
	Duplicates          []Repository        `json:"duplicates"`
}

func NewReport(g *lockgraph.Graph) Report {
	report := Report{
		Dependencies:        make(map[string][]string),
		ReverseDependencies: make(map[string][]string),
		Duplicates:          []Repository{},
	}

	for digest, nodes := range g.SimilarityMap() {
		for _, i := range nodes {
			report.Dependencies[digest] = append(report.Dependencies[digest], g.Nodes[i].Name)
		}
	}

	for i, node := range g.Nodes {
		if dependants := g.Dependants(i); len(dependants) > 0 {
			report.ReverseDependencies[node.Name] = dependants
		}
	}

	for _, group := range g.Duplicates() {
		repo := Repository{
			Digest: group.Digest,
			URL:    flake.ShortURL(g.Nodes[group.Nodes[0]].Locked.Ref),
		}
		for _, i := range group.Nodes {
			node := g.Nodes[i]
			repo.Versions = append(repo.Versions, Version{
				Node:       node.Name,
				Rev:        flake.Revision(node.Locked.Ref),
				NarHash:    node.Locked.NarHash,
				Dependants: g.Dependants(i),
			})
		}
		report.Duplicates = append(report.Duplicates, repo)
	}

	return report
}

// PrintDuplicates writes the duplicate report for g to w in the requested
// format. Unknown formats fall back to pretty.
func PrintDuplicates(w io.Writer, g *lockgraph.Graph, options Options) error {
	if options.Quiet {
		return nil
	}

	report := NewReport(g)

	switch options.OutputFormat {
	case "json":
		jsonData, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling JSON output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(jsonData))
		return err
	case "plain":
		printPlainOutput(w, report, options)
	default:
		printFormattedOutput(w, report, options)
	}
	return nil
}

type styles struct {
	header, success, warning, danger, info lipgloss.Style
	dim, bold, url, alias, dependant       lipgloss.Style

	successIcon, warningIcon, errorIcon, infoIcon string
}

func newStyles(noColor bool) styles {
	if noColor {
		empty := lipgloss.NewStyle()
		return styles{
			header: empty, success: empty, warning: empty, danger: empty, info: empty,
			dim: empty, bold: empty, url: empty, alias: empty, dependant: empty,

			// Unicode-safe symbols for CI
			successIcon: "[✓]",
			warningIcon: "[!]",
			errorIcon:   "[✗]",
			infoIcon:    "[i]",
		}
	}

	return styles{
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Underline(true),
		success:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		danger:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		info:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		bold:      lipgloss.NewStyle().Bold(true),
		url:       lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Underline(true),
		alias:     lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Italic(true),
		dependant: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		successIcon: "✓",
		warningIcon: "⚠",
		errorIcon:   "✗",
		infoIcon:    "ℹ",
	}
}

func printFormattedOutput(w io.Writer, report Report, options Options) {
	s := newStyles(options.NoColor)

	totalSources := len(report.Dependencies)
	duplicateSources := len(report.Duplicates)
	totalDuplicates := 0
	for _, repo := range report.Duplicates {
		totalDuplicates += len(repo.Versions) - 1
	}

	fmt.Fprintln(w, s.header.Render("🔍 flake-graph - Dependency Analysis Report"))

	if totalSources == 0 {
		fmt.Fprintln(w, s.info.Render(fmt.Sprintf("%s No locked inputs found in lockfile", s.infoIcon)))
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w, s.info.Render(fmt.Sprintf("%s Analyzing %d unique sources...", s.infoIcon, totalSources)))

	if duplicateSources == 0 {
		fmt.Fprintln(w, s.success.Render(fmt.Sprintf("%s No duplicate repositories detected", s.successIcon)))
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.dim.Render("Every source is pinned once. Your dependency tree is optimized!"))
		return
	}

	fmt.Fprintln(w, s.warning.Render(fmt.Sprintf("%s Found %d repositories with multiple versions (%d total duplicates)",
		s.warningIcon, duplicateSources, totalDuplicates)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, s.bold.Render("📋 Detailed Analysis:"))
	fmt.Fprintln(w)

	for n, repo := range report.Duplicates {
		fmt.Fprintln(w, s.danger.Render(fmt.Sprintf("(%d) %s", n+1, repo.Name())))
		fmt.Fprintf(w, "   %s %s\n", s.dim.Render("├─"), s.bold.Render("Repository: ")+s.url.Render(repo.URL))
		fmt.Fprintf(w, "   %s %s\n", s.dim.Render("├─"), s.warning.Render(fmt.Sprintf("Versions: %d", len(repo.Versions))))

		if options.Merge {
			if dependants := repo.Dependants(); len(dependants) > 0 {
				fmt.Fprintf(w, "   %s %s\n", s.dim.Render("└─"),
					s.dependant.Render(fmt.Sprintf("Used by: %s", strings.Join(dependants, ", "))))
			} else {
				fmt.Fprintf(w, "   %s %s\n", s.dim.Render("└─"), s.dim.Render("No direct dependants"))
			}
			fmt.Fprintln(w)
			continue
		}

		for i, version := range repo.Versions {
			isLast := i == len(repo.Versions)-1
			connector, subConnector := "├─", "│"
			if isLast {
				connector, subConnector = "└─", " "
			}

			versionInfo := version.Node
			if version.Rev != "" {
				versionInfo += " (" + version.Rev + ")"
			}
			fmt.Fprintf(w, "   %s %s\n", s.dim.Render(connector), s.alias.Render(versionInfo))

			if len(version.Dependants) > 0 {
				fmt.Fprintf(w, "   %s     %s %s\n", s.dim.Render(subConnector), s.dim.Render("└─"),
					s.dependant.Render(fmt.Sprintf("Used by: %s", strings.Join(version.Dependants, ", "))))
			}

			if options.Verbose {
				fmt.Fprintf(w, "   %s     %s %s\n", s.dim.Render(subConnector), s.dim.Render("└─"),
					s.dim.Render(fmt.Sprintf("narHash: %s", version.NarHash)))
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, s.dim.Render(strings.Repeat("━", 48)))
	fmt.Fprintln(w, s.bold.Render("📊 Summary:"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, s.danger.Render(fmt.Sprintf("%s %d repositories have duplicate versions",
		s.errorIcon, duplicateSources)))
	fmt.Fprintln(w, s.warning.Render(fmt.Sprintf("%s %d total duplicate dependencies detected",
		s.warningIcon, totalDuplicates)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.info.Render(fmt.Sprintf("%s Recommendation:", s.infoIcon)))
	fmt.Fprintln(w, "   Consider using 'inputs.<name>.follows' in your flake.nix to deduplicate")
	fmt.Fprintln(w, "   dependencies and reduce closure size.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.dim.Render("   Example:"))
	fmt.Fprintln(w, s.dim.Render(`   inputs.someInput.inputs.nixpkgs.follows = "nixpkgs";`))
}

func printPlainOutput(w io.Writer, report Report, options Options) {
	var titleStyle, inputStyle, aliasStyle, depStyle, summaryStyle lipgloss.Style

	if options.NoColor {
		emptyStyle := lipgloss.NewStyle()
		titleStyle = emptyStyle
		inputStyle = emptyStyle
		aliasStyle = emptyStyle
		depStyle = emptyStyle
		summaryStyle = emptyStyle
	} else {
		titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true).
			Underline(true)

		inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

		aliasStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Italic(true)

		depStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

		summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3")).
			Bold(true)
	}

	fmt.Fprintln(w, titleStyle.Render("Dependency Analysis Report"))

	for _, repo := range report.Duplicates {
		fmt.Fprintln(w, inputStyle.Render(fmt.Sprintf("Repository: %s", repo.URL)))

		if options.Merge {
			if dependants := repo.Dependants(); len(dependants) > 0 {
				fmt.Fprintln(w, depStyle.Render(fmt.Sprintf("  Dependants: %s", strings.Join(dependants, ", "))))
			}
			continue
		}

		for _, version := range repo.Versions {
			line := "  Version: " + version.Node
			if version.Rev != "" {
				line += " " + version.Rev
			}
			fmt.Fprintln(w, aliasStyle.Render(line))
			if len(version.Dependants) > 0 {
				fmt.Fprintln(w, depStyle.Render(fmt.Sprintf("    Dependants: %s", strings.Join(version.Dependants, ", "))))
			}
			if options.Verbose {
				fmt.Fprintln(w, depStyle.Render(fmt.Sprintf("    [Debug] %d inputs depend on this version", len(version.Dependants))))
			}
			fmt.Fprintln(w)
		}
	}

	if len(report.Duplicates) == 0 {
		fmt.Fprintln(w, summaryStyle.Render("No duplicate repositories detected in the lockfile."))
	}
}
