package present

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/jmylchreest/winnow/pkg/report"
)

// Theme is the color scheme for terminal output.
type Theme struct {
	High    lipgloss.Style
	Medium  lipgloss.Style
	Low     lipgloss.Style
	Path    lipgloss.Style
	Region  lipgloss.Style
	Summary lipgloss.Style
	Dim     lipgloss.Style
}

// DefaultTheme colors similarity by band.
var DefaultTheme = Theme{
	High:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	Medium:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	Low:     lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
	Path:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Region:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
	Summary: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
	Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
}

// PlainTheme renders without styling.
var PlainTheme = Theme{
	High:    lipgloss.NewStyle(),
	Medium:  lipgloss.NewStyle(),
	Low:     lipgloss.NewStyle(),
	Path:    lipgloss.NewStyle(),
	Region:  lipgloss.NewStyle(),
	Summary: lipgloss.NewStyle(),
	Dim:     lipgloss.NewStyle(),
}

// Similarity bands.
const (
	highSimilarity   = 0.75
	mediumSimilarity = 0.5
)

// TerminalOptions configures Terminal.
type TerminalOptions struct {
	// ShowFragments lists the matched regions under the table.
	ShowFragments bool
	Theme         *Theme
}

// Terminal writes a summary line and a table of pairs.
func Terminal(w io.Writer, r *report.Report, opts TerminalOptions) error {
	theme := opts.Theme
	if theme == nil {
		theme = &DefaultTheme
	}
	s := r.Stats()

	fmt.Fprintf(w, "Compared %s files (%d tokens, %d fingerprints, %d ignored) in %s\n",
		theme.Summary.Render(strconv.Itoa(s.Files)),
		s.Tokens, s.Fingerprints, s.IgnoredFingerprints,
		(s.FingerprintDuration + s.CompareDuration).Round(time.Millisecond))

	pairs := r.Pairs()
	if len(pairs) == 0 {
		fmt.Fprintln(w, theme.Dim.Render("No similar pairs found."))
		return nil
	}
	fmt.Fprintf(w, "Found %s similar pairs (%d candidates, sorted by %s)\n\n",
		theme.Summary.Render(strconv.Itoa(len(pairs))), s.CandidatePairs, r.Options().SortBy)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Left", "Right", "Similarity", "Overlap", "Longest", "Fragments")
	for i, p := range pairs {
		row := []string{
			strconv.Itoa(i + 1),
			theme.Path.Render(p.Left.File.Path),
			theme.Path.Render(p.Right.File.Path),
			theme.similarity(p.Similarity),
			strconv.Itoa(p.Overlap()),
			strconv.Itoa(p.Longest),
			strconv.Itoa(len(p.Fragments)),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	if !opts.ShowFragments {
		return nil
	}
	for i, p := range pairs {
		fmt.Fprintf(w, "\n#%d %s <-> %s\n", i+1, theme.Path.Render(p.Left.File.Path), theme.Path.Render(p.Right.File.Path))
		for _, f := range p.Fragments {
			fmt.Fprintf(w, "  %s  %s  %s\n",
				theme.Region.Render(f.LeftRegion.String()),
				theme.Region.Render(f.RightRegion.String()),
				theme.Dim.Render(fmt.Sprintf("%d k-grams", f.Len())))
		}
	}
	return nil
}

func (t *Theme) similarity(v float64) string {
	text := fmt.Sprintf("%.1f%%", v*100)
	switch {
	case v >= highSimilarity:
		return t.High.Render(text)
	case v >= mediumSimilarity:
		return t.Medium.Render(text)
	default:
		return t.Low.Render(text)
	}
}
