package deviation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
)

// ReportOptions controls the console report.
type ReportOptions struct {
	// Agreement adds the agreement score line.
	Agreement bool
	// Color highlights the exceeding count. Only set it for terminals.
	Color bool
}

// Report prints the run summary for the operator, one figure per line.
func Report(w io.Writer, s Summary, opts ReportOptions) error {
	highlight := color.New(color.FgGreen)
	if s.Exceeding > 0 {
		highlight = color.New(color.FgRed, color.Bold)
	}
	if opts.Color {
		highlight.EnableColor()
	} else {
		highlight.DisableColor()
	}

	if _, err := fmt.Fprintf(w, "total points: %d\n", s.Total); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "points exceeding threshold: %s\n", highlight.Sprint(s.Exceeding)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "exceeding percentage: %.2f%%\n", s.ExceedingPercentage); err != nil {
		return err
	}
	if opts.Agreement {
		if _, err := fmt.Fprintf(w, "agreement score: %.2f\n", s.AgreementScore); err != nil {
			return err
		}
	}
	return nil
}

// ReportStats prints the deviation distribution.
func ReportStats(w io.Writer, st Stats) error {
	_, err := fmt.Fprintf(w,
		"axis  mean      stddev    max\n"+
			"x     %-9.4f %-9.4f %.4f\n"+
			"y     %-9.4f %-9.4f %.4f\n"+
			"z     %-9.4f %-9.4f %.4f\n"+
			"largest axis difference: mean %.4f, p95 %.4f\n",
		st.X.Mean, st.X.StdDev, st.X.Max,
		st.Y.Mean, st.Y.StdDev, st.Y.Max,
		st.Z.Mean, st.Z.StdDev, st.Z.Max,
		st.MeanMax, st.P95Max,
	)
	return err
}

// WriteCSV exports the merged table. Position columns from the first
// dataset carry the suffix _1, those from the second _2.
func WriteCSV(w io.Writer, records []Record, keyNames [2]string, posNames [3]string) error {
	cw := csv.NewWriter(w)

	header := []string{keyNames[0], keyNames[1]}
	for _, suffix := range []string{"_1", "_2"} {
		for _, n := range posNames {
			header = append(header, n+suffix)
		}
	}
	for _, n := range posNames {
		header = append(header, n+"_diff")
	}
	header = append(header, "Exceeds_Threshold")
	if err := cw.Write(header); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	row := make([]string, len(header))
	for _, r := range records {
		row = append(row[:0],
			r.Key.PixelX, r.Key.PixelY,
			f(r.First.X), f(r.First.Y), f(r.First.Z),
			f(r.Second.X), f(r.Second.Y), f(r.Second.Z),
			f(r.Diff.X), f(r.Diff.Y), f(r.Diff.Z),
			strconv.FormatBool(r.Exceeds),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
