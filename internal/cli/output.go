package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

// table writes tab-aligned rows under a header line.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func footer[T any](w io.Writer, p normalize.Page[T]) {
	if p.TotalPages > 1 {
		fmt.Fprintf(w, "page %d of %d, %s total\n", p.CurrentPage+1, p.TotalPages, humanize.Comma(int64(p.TotalElements)))
	}
}

func (e *Env) ago(t normalize.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t.Time, e.Now(), "ago", "from now")
}

func relTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// pageFlags binds --page (one-based on the command line) and --size.
func pageFlags(cmd *cobra.Command) func() domain.PageQuery {
	page := cmd.Flags().Int("page", 1, "page number, starting at 1")
	size := cmd.Flags().Int("size", 0, "page size (platform default when 0)")
	return func() domain.PageQuery {
		return domain.PageQuery{Page: *page - 1, Size: *size}
	}
}

func idArg(args []string, i int) (normalize.ID, error) {
	return normalize.ParseID(args[i])
}

// idFlag converts an optional numeric flag; zero and negatives mean unset.
func idFlag(n int64) normalize.ID {
	if n < 0 {
		return 0
	}
	return normalize.ID(n)
}
