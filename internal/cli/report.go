package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/kocahmet1/ultrasat-progress/internal/jobs/recompute"
	"github.com/kocahmet1/ultrasat-progress/internal/services"
)

func writeNormalizeReport(w io.Writer, s services.NormalizeSummary) {
	title := "Quiz normalization (apply)"
	if s.DryRun {
		title = "Quiz normalization (preview, nothing written)"
	}
	fmt.Fprintln(w, title)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  documents scanned:\t%d\n", s.Total)
	fmt.Fprintf(tw, "  needing migration:\t%d\n", s.NeedsMigration)
	if !s.DryRun {
		fmt.Fprintf(tw, "  migrated:\t%d\n", s.Migrated)
		fmt.Fprintf(tw, "  write batches:\t%d\n", s.Batches)
	}
	fmt.Fprintf(tw, "  already migrated:\t%d\n", s.AlreadyMigrated)
	fmt.Fprintf(tw, "  errors:\t%d\n", s.Errors)
	if s.DryRun {
		fmt.Fprintf(tw, "  estimated savings:\t%s\n", humanBytes(s.EstimatedSavedBytes))
	}
	fmt.Fprintf(tw, "  duration:\t%s\n", s.Duration.Round(time.Millisecond))
	_ = tw.Flush()

	if s.Interrupted {
		fmt.Fprintln(w, "Run was interrupted; rerun to finish the remaining documents.")
	}
	writeReasons(w, "document", s.ErrorReasons)
}

func writeRecomputeReport(w io.Writer, s recompute.Summary) {
	fmt.Fprintf(w, "Stats recompute (%s)\n", s.Mode)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if s.Mode == recompute.ModeRecreate {
		fmt.Fprintf(tw, "  cache records deleted:\t%d\n", s.Deleted)
	}
	fmt.Fprintf(tw, "  users:\t%d\n", s.Users)
	fmt.Fprintf(tw, "  processed:\t%d\n", s.Processed)
	fmt.Fprintf(tw, "  created:\t%d\n", s.Created)
	fmt.Fprintf(tw, "  updated:\t%d\n", s.Updated)
	fmt.Fprintf(tw, "  skipped (no activity):\t%d\n", s.Skipped)
	fmt.Fprintf(tw, "  errors:\t%d\n", s.Errors)
	fmt.Fprintf(tw, "  batches:\t%d\n", s.Batches)
	fmt.Fprintf(tw, "  duration:\t%s\n", s.Duration.Round(time.Millisecond))
	_ = tw.Flush()

	if s.Interrupted {
		fmt.Fprintln(w, "Run was interrupted between batches; rerun to cover the remaining users.")
	}
	writeReasons(w, "user", s.ErrorReasons)
}

func writeReasons(w io.Writer, noun string, reasons map[string]string) {
	if len(reasons) == 0 {
		return
	}
	ids := make([]string, 0, len(reasons))
	for id := range reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintf(w, "Errors by %s:\n", noun)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, reasons[id])
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
