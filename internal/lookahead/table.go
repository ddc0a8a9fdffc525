package lookahead

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

var tableHeaders = []string{
	"filename", "strategy", "has_bias", "total_signals",
	"biased_entry_signals", "biased_exit_signals", "biased_indicators",
}

// RenderTable writes one row per result, in the given order.
func RenderTable(w io.Writer, results []Result, minimum, targeted int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeaders, "\t"))
	for _, r := range results {
		fmt.Fprintln(tw, strings.Join(tableRow(r, minimum, targeted), "\t"))
	}
	return tw.Flush()
}

func tableRow(r Result, minimum, targeted int) []string {
	switch {
	case r.Failed:
		return []string{r.Filename, r.Strategy, "error while checking"}
	case r.TotalSignals < minimum:
		return []string{r.Filename, r.Strategy,
			fmt.Sprintf("not enough trades caught (%d/%d). Test failed.", r.TotalSignals, targeted)}
	}
	return []string{
		r.Filename,
		r.Strategy,
		pyBool(r.HasBias),
		fmt.Sprint(r.TotalSignals),
		fmt.Sprint(r.BiasedEntrySignals),
		fmt.Sprint(r.BiasedExitSignals),
		strings.Join(r.BiasedIndicators, ", "),
	}
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
