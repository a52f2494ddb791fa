package render

import (
	"testing"

	"github.com/banshee-data/pointdiff/internal/deviation"
	"github.com/banshee-data/pointdiff/internal/pointcloud"
)

func TestParseAxisOrder(t *testing.T) {
	for _, in := range []string{"xyz", "xzy", "ZYX", "yxz"} {
		o, err := ParseAxisOrder(in)
		if err != nil {
			t.Errorf("ParseAxisOrder(%q): %v", in, err)
			continue
		}
		if len(o.String()) != 3 {
			t.Errorf("String() = %q", o.String())
		}
	}
	for _, in := range []string{"", "xy", "xxy", "xyw", "xyzz"} {
		if _, err := ParseAxisOrder(in); err == nil {
			t.Errorf("ParseAxisOrder(%q) should fail", in)
		}
	}
}

func TestAxisOrderApply(t *testing.T) {
	p := pointcloud.Point{X: 1, Y: 2, Z: 3}

	tests := []struct {
		order  string
		want   [3]float64
		labels [3]string
	}{
		{"xyz", [3]float64{1, 2, 3}, [3]string{"X", "Y", "Z"}},
		{"xzy", [3]float64{1, 3, 2}, [3]string{"X", "Z", "Y"}},
		{"zyx", [3]float64{3, 2, 1}, [3]string{"Z", "Y", "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.order, func(t *testing.T) {
			o, err := ParseAxisOrder(tt.order)
			if err != nil {
				t.Fatal(err)
			}
			if got := o.Apply(p); got != tt.want {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
			if got := o.Labels(); got != tt.labels {
				t.Errorf("Labels() = %v, want %v", got, tt.labels)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	if _, err := parseColor("#ff0000"); err != nil {
		t.Errorf("parseColor(#ff0000): %v", err)
	}
	if _, err := parseColor("red"); err == nil {
		t.Error("parseColor(red) should fail")
	}
}

// mixedResult has two points within a 1.0 threshold and one beyond it.
func mixedResult(t *testing.T) *deviation.Result {
	t.Helper()
	res, err := deviation.Analyze([]pointcloud.Pair{
		{Key: pointcloud.Key{PixelX: "1", PixelY: "1"}, First: pointcloud.Point{X: 0, Y: 0, Z: 0}, Second: pointcloud.Point{X: 0, Y: 0, Z: 0.5}},
		{Key: pointcloud.Key{PixelX: "2", PixelY: "1"}, First: pointcloud.Point{X: 1, Y: 2, Z: 3}, Second: pointcloud.Point{X: 1, Y: 2, Z: 9}},
		{Key: pointcloud.Key{PixelX: "3", PixelY: "1"}, First: pointcloud.Point{X: 4, Y: 5, Z: 6}, Second: pointcloud.Point{X: 4, Y: 5, Z: 6}},
	}, 1.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return res
}
