package deviation

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/pointdiff/internal/pointcloud"
)

func TestReport(t *testing.T) {
	s := Summary{Threshold: 1, Total: 3, Exceeding: 1, ExceedingPercentage: 100.0 / 3, AgreementScore: 2.0 / 3}

	tests := []struct {
		name string
		opts ReportOptions
		want string
	}{
		{
			name: "without agreement",
			want: "total points: 3\npoints exceeding threshold: 1\nexceeding percentage: 33.33%\n",
		},
		{
			name: "with agreement",
			opts: ReportOptions{Agreement: true},
			want: "total points: 3\npoints exceeding threshold: 1\nexceeding percentage: 33.33%\nagreement score: 0.67\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Report(&buf, s, tt.opts); err != nil {
				t.Fatalf("Report: %v", err)
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("Report() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReport_Color(t *testing.T) {
	var buf bytes.Buffer
	if err := Report(&buf, Summary{Total: 1, Exceeding: 1, ExceedingPercentage: 100}, ReportOptions{Color: true}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escape in coloured report, got %q", buf.String())
	}
}

func TestReportStats(t *testing.T) {
	var buf bytes.Buffer
	st := Stats{X: AxisStats{Mean: 1, StdDev: 0.5, Max: 2}, MeanMax: 1.25, P95Max: 2}
	if err := ReportStats(&buf, st); err != nil {
		t.Fatalf("ReportStats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"x     1.0000    0.5000    2.0000", "mean 1.2500, p95 2.0000"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	recs := Evaluate([]pointcloud.Pair{
		{Key: pointcloud.Key{PixelX: "1", PixelY: "1"}, First: pointcloud.Point{}, Second: pointcloud.Point{Z: 2}},
		{Key: pointcloud.Key{PixelX: "2", PixelY: "1"}, First: pointcloud.Point{X: 0.25}, Second: pointcloud.Point{X: 0.5}},
	}, 1)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs, [2]string{"//Pixel_X", "Pixel_Y"}, [3]string{"X", "Y", "Z"}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read export: %v", err)
	}
	want := [][]string{
		{"//Pixel_X", "Pixel_Y", "X_1", "Y_1", "Z_1", "X_2", "Y_2", "Z_2", "X_diff", "Y_diff", "Z_diff", "Exceeds_Threshold"},
		{"1", "1", "0", "0", "0", "0", "0", "2", "0", "0", "2", "true"},
		{"2", "1", "0.25", "0", "0", "0.5", "0", "0", "0.25", "0", "0", "false"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_LargeValues(t *testing.T) {
	cols := pointcloud.DefaultColumns()
	first, err := pointcloud.Load("a.csv", strings.NewReader(
		"//Pixel_X,Pixel_Y,X,Y,Z\n1000000,9007199254740993,1000000,0,0\n"), cols)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := pointcloud.Load("b.csv", strings.NewReader(
		"//Pixel_X,Pixel_Y,X,Y,Z\n1e6,9007199254740993,1000000,0,0.5\n"), cols)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pairs, err := pointcloud.Merge(first, second, pointcloud.DuplicateReject)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, Evaluate(pairs, 1), [2]string{"//Pixel_X", "Pixel_Y"}, [3]string{"X", "Y", "Z"}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-read export: %v", err)
	}
	want := []string{"1000000", "9007199254740993", "1000000", "0", "0", "1000000", "0", "0.5", "0", "0", "0.5", "false"}
	if len(rows) != 2 {
		t.Fatalf("export rows = %d, want 2", len(rows))
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("export row mismatch (-want +got):\n%s", diff)
	}
}
