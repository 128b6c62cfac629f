// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package samples // import "github.com/perfpt/jitperf/samples"

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteTop writes the first limit entries of r as a table. A limit <= 0 writes all entries.
func WriteTop(w io.Writer, r Ranking, limit int) error {
	n := r.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	total := r.TotalSelfTime()

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintln(tw, "#\tSelf time\tShare\tInvocations\t Routine"); err != nil {
		return err
	}
	for i := range n {
		routine := r.At(i)
		share := 0.0
		if total > 0 {
			share = float64(routine.SelfTime) * 100 / float64(total)
		}
		if _, err := fmt.Fprintf(tw, "%d\t%v\t%.2f%%\t%d\t %s\n", i+1,
			time.Duration(routine.SelfTime), share, routine.Invocations,
			routine.Name); err != nil {
			return err
		}
	}
	return tw.Flush()
}
