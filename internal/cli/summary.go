package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/Andrei-Barwood/annotaudit/internal/model"
	"github.com/Andrei-Barwood/annotaudit/internal/report"
)

func printSummary(w io.Writer, result model.RunResult, outPath string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	counts := map[model.Severity]int{}
	for _, is := range result.Issues {
		counts[is.EscalationSeverity]++
	}

	fmt.Fprintln(w, cyan("annotaudit summary"))
	if result.RunID != "" {
		fmt.Fprintf(w, "- run: %s\n", gray(result.RunID))
	}
	if result.Project != "" {
		fmt.Fprintf(w, "- project: %s\n", result.Project)
	}
	fmt.Fprintf(w, "- tasks: %d\n", result.Tasks)
	fmt.Fprintf(w, "- annotations: %d\n", result.Annotations)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "- skipped: %s\n", yellow(strconv.Itoa(len(result.Skipped))))
	}
	if th := result.Thresholds; th != nil {
		fmt.Fprintf(w, "- p%s width: %s %s\n", fnum(th.Percentile), fnum(th.Width), gray(distLine(result.Widths)))
		fmt.Fprintf(w, "- p%s height: %s %s\n", fnum(th.Percentile), fnum(th.Height), gray(distLine(result.Heights)))
	}
	if len(result.Issues) == 0 {
		fmt.Fprintf(w, "- issues: %s\n", green("0"))
	} else {
		fmt.Fprintf(w, "- issues: %d\n", len(result.Issues))
	}
	fmt.Fprintf(w, "- errors: %s\n", red(strconv.Itoa(counts[model.SeverityError])))
	fmt.Fprintf(w, "- warnings: %s\n", yellow(strconv.Itoa(counts[model.SeverityWarning])))
	if outPath != "" {
		fmt.Fprintf(w, "- saved: %s\n", outPath)
	}
	if len(result.Notes) > 0 {
		fmt.Fprintln(w, "- notes:")
		for _, note := range result.Notes {
			fmt.Fprintf(w, "  - %s\n", note)
		}
	}
}

func distLine(d model.Distribution) string {
	if d.Count == 0 {
		return ""
	}
	return fmt.Sprintf("(n=%d mean=%.1f sd=%.1f min=%s max=%s)", d.Count, d.Mean, d.StdDev, fnum(d.Min), fnum(d.Max))
}

func renderGroupsTable(groups []report.Group) string {
	if len(groups) == 0 {
		return "No issues.\n"
	}

	var b strings.Builder
	b.WriteString("SEVERITY  RULE                    LABEL                 ISSUES  TASKS\n")
	b.WriteString("--------  ----------------------  --------------------  ------  -----\n")
	for _, g := range groups {
		fmt.Fprintf(
			&b,
			"%-8s  %-22s  %-20s  %-6d  %d\n",
			g.Severity,
			truncate(g.Rule, 22),
			truncate(g.Label, 20),
			g.Count,
			g.Tasks,
		)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n < 4 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func fnum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
