package check

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/j340m3/compiler/pkg/diag"
)

// ReportOptions controls WriteReport.
type ReportOptions struct {
	Color bool
	// Types lists each declaration's scheme before the diagnostics.
	Types bool
	// Context is the number of source lines shown around each diagnostic.
	Context int
}

var (
	declNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117"))
	schemeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// WriteReport prints a program's results as text: optionally the scheme of
// every declaration, then every diagnostic with source context, then a
// summary line.
func WriteReport(w io.Writer, res *ProgramResult, sources map[string]string, opts ReportOptions) error {
	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	var out strings.Builder
	if opts.Types && len(res.Decls) > 0 {
		for _, d := range res.Decls {
			fmt.Fprintf(&out, "%s : %s\n", style(declNameStyle, d.Name), style(schemeStyle, d.Scheme.String()))
		}
		out.WriteString("\n")
	}
	if _, err := io.WriteString(w, out.String()); err != nil {
		return err
	}

	if res.Diagnostics.Len() > 0 {
		if err := diag.Render(w, res.Diagnostics, sources, diag.RenderOptions{
			Color:   opts.Color,
			Context: opts.Context,
		}); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("%s, %s",
		plural(len(res.Decls), "declaration"),
		plural(res.Diagnostics.Len(), "error"))
	if res.Diagnostics.Len() > 0 {
		summary = style(failStyle, summary)
	} else {
		summary = style(okStyle, summary)
	}
	if _, err := fmt.Fprintln(w, summary); err != nil {
		return err
	}
	if len(res.Skipped) > 0 {
		if _, err := fmt.Fprintf(w, "skipped: %s\n", strings.Join(res.Skipped, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
