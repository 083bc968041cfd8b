package diag

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// RenderOptions controls Render.
type RenderOptions struct {
	// Color enables terminal styling.
	Color bool
	// Context is the number of source lines shown above and below the
	// offending line.
	Context int
}

type styles struct {
	kind, loc, gutter, caret, help, note lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		kind:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		loc:    lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
		gutter: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		caret:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		help:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		note:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Render writes every diagnostic with its location, surrounding source
// lines and an underline beneath the offending span. sources maps filenames
// to their contents; files missing from it are read from disk.
func Render(w io.Writer, diags List, sources map[string]string, opts RenderOptions) error {
	st := newStyles(opts.Color)
	for i, d := range diags {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, renderOne(d, sources, opts, st)); err != nil {
			return err
		}
	}
	return nil
}

func renderOne(d *Diagnostic, sources map[string]string, opts RenderOptions, st styles) string {
	var out strings.Builder

	fmt.Fprintf(&out, "%s %s\n", st.kind.Render("error["+d.Kind.Code()+"]:"), d.Message)
	if d.Loc == nil {
		return out.String()
	}
	fmt.Fprintf(&out, "  %s %s\n", st.gutter.Render("-->"), st.loc.Render(d.Loc.String()))

	lines := sourceLines(d.Loc.Filename, sources)
	if d.Loc.Line >= 1 && d.Loc.Line <= len(lines) {
		start := max(1, d.Loc.Line-opts.Context)
		end := min(len(lines), d.Loc.Line+opts.Context)
		width := len(strconv.Itoa(end))
		blank := strings.Repeat(" ", width)

		fmt.Fprintf(&out, " %s %s\n", blank, st.gutter.Render("|"))
		for n := start; n <= end; n++ {
			line := lines[n-1]
			num := fmt.Sprintf("%*d", width, n)
			row := fmt.Sprintf(" %s %s %s", st.gutter.Render(num), st.gutter.Render("|"), line)
			out.WriteString(strings.TrimRight(row, " \t\r") + "\n")
			if n == d.Loc.Line {
				fmt.Fprintf(&out, " %s %s %s%s\n", blank, st.gutter.Render("|"),
					indentTo(line, d.Loc.Column),
					st.caret.Render(strings.Repeat("^", max(1, d.Loc.Length))))
			}
		}
		fmt.Fprintf(&out, " %s %s\n", blank, st.gutter.Render("|"))
	}

	if d.Related != nil {
		fmt.Fprintf(&out, "  %s previous definition at %s\n", st.note.Render("= note:"), d.Related)
	}
	if len(d.Suggestions) > 0 {
		quoted := make([]string, len(d.Suggestions))
		for i, s := range d.Suggestions {
			quoted[i] = strconv.Quote(s)
		}
		fmt.Fprintf(&out, "  %s did you mean %s?\n", st.help.Render("= help:"), strings.Join(quoted, " or "))
	}
	return out.String()
}

// indentTo returns the whitespace that lines a caret up under column col of
// line, preserving tabs.
func indentTo(line string, col int) string {
	runes := []rune(line)
	prefix := string(runes[:min(max(col-1, 0), len(runes))])
	var sb strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			sb.WriteRune('\t')
			continue
		}
		sb.WriteString(strings.Repeat(" ", ansi.StringWidth(string(r))))
	}
	return sb.String()
}

func sourceLines(filename string, sources map[string]string) []string {
	src, ok := sources[filename]
	if !ok && filename != "" {
		contents, err := os.ReadFile(filename)
		if err != nil {
			return nil
		}
		src = string(contents)
	}
	return strings.Split(strings.TrimSuffix(src, "\n"), "\n")
}
