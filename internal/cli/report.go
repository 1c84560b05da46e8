package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders the result as a markdown summary table.
func (r Result) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Replay: %s\n\n", r.Scenario)
	b.WriteString("| # | Step | Result |\n|---|---|---|\n")
	for _, o := range r.Outcomes {
		label := o.Action
		if o.Name != "" {
			label = o.Name
		}
		status := "ok"
		if !o.Passed() {
			status = "**failed**: " + strings.Join(o.Failures, "; ")
		}
		fmt.Fprintf(&b, "| %d | %s | %s |\n", o.Index, escapeCell(label), escapeCell(status))
	}
	fmt.Fprintf(&b, "\n%d steps, %d failed.\n", len(r.Outcomes), r.Failed())
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// renderMarkdown styles markdown for a terminal. Plain output is returned
// as-is.
func renderMarkdown(markdown string, styled bool) (string, error) {
	if !styled {
		return markdown, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render(markdown)
}
