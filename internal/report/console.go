package report

import (
	"fmt"
	"io"
	"time"

	"github.com/ARTIFACTIQ/gt-audit/internal/audit"
)

// PrintConsole writes the post-run summary block for humans. Reports go to
// files; this is the stdout view of the same numbers.
func PrintConsole(w io.Writer, result *Result, elapsed time.Duration) {
	summary := result.Summary

	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║                      AUDIT SUMMARY                       ║")
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total images:       %d\n", summary.TotalImages)
	fmt.Fprintf(w, "  Images audited:     %d\n", summary.ImagesAudited)
	fmt.Fprintf(w, "  Images with issues: %d\n", summary.ImagesWithIssues)
	fmt.Fprintf(w, "  Total issues:       %d\n", summary.TotalIssues)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  By severity:")
	fmt.Fprintf(w, "    🔴 High:   %d\n", summary.HighCount())
	fmt.Fprintf(w, "    🟡 Medium: %d\n", summary.MediumCount())
	fmt.Fprintf(w, "    ⚪ Low:    %d\n", summary.LowCount())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  By type:")
	for _, issueType := range audit.IssueTypes() {
		if count := summary.ByType[issueType]; count > 0 {
			fmt.Fprintf(w, "    %s: %d\n", issueType, count)
		}
	}
	if len(summary.SkippedImages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Skipped images:     %d\n", len(summary.SkippedImages))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Time: %.2fs\n", elapsed.Seconds())
}
