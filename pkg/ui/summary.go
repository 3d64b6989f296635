package ui

import (
	"fmt"
	"strings"

	"github.com/entrhq/formless/pkg/fill"
	"github.com/entrhq/formless/pkg/selection"
)

// Summary renders a one-line account of a settled session.
func Summary(o selection.Outcome) string {
	switch {
	case o.Dropped:
		return "Session closed before the response arrived; nothing was filled."
	case len(o.Labels) == 0:
		return "Nothing to fill."
	case o.Empty():
		return "No matching memories found."
	}

	filled := o.Report.Filled()
	var sb strings.Builder
	if o.Mode == selection.ModeSingle {
		fmt.Fprintf(&sb, "Filled %q.", o.Labels[0])
	} else {
		fmt.Fprintf(&sb, "Filled %d of %d fields.", filled, len(o.Report.Results))
	}
	if skipped := o.Report.Count(fill.StatusSkipped); skipped > 0 {
		fmt.Fprintf(&sb, " %d skipped.", skipped)
	}
	if failed := o.Report.Count(fill.StatusFailed); failed > 0 {
		fmt.Fprintf(&sb, " %d failed.", failed)
	}
	return sb.String()
}

// Details lists each field's outcome, one per line.
func Details(o selection.Outcome) string {
	var sb strings.Builder
	for _, res := range o.Report.Results {
		fmt.Fprintf(&sb, "%-8s %s", res.Status, res.Label)
		if res.Err != nil {
			fmt.Fprintf(&sb, " (%v)", res.Err)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
