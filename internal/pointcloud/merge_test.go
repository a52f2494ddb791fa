package pointcloud

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/pointdiff/internal/testutil"
)

func load(t *testing.T, name string, rows ...[]string) *Dataset {
	t.Helper()
	ds, err := Load(name, strings.NewReader(testutil.PointCSV(rows...)), DefaultColumns())
	testutil.AssertNoError(t, err)
	return ds
}

func dataset(name string, rows ...Row) *Dataset {
	for i := range rows {
		if rows[i].Line == 0 {
			rows[i].Line = i + 2
		}
	}
	return &Dataset{Name: name, Rows: rows}
}

func row(px, py string, x, y, z float64) Row {
	return Row{Key: Key{px, py}, Pos: Point{x, y, z}}
}

func TestMerge_InnerJoin(t *testing.T) {
	first := dataset("a",
		row("1", "1", 0, 0, 0),
		row("2", "1", 1, 1, 1),
		row("3", "1", 2, 2, 2),
	)
	second := dataset("b",
		row("3", "1", 2, 2, 5),
		row("9", "9", 7, 7, 7),
		row("1", "1", 0, 0, 2),
	)

	got, err := Merge(first, second, DuplicateReject)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	want := []Pair{
		{Key: Key{"1", "1"}, First: Point{0, 0, 0}, Second: Point{0, 0, 2}},
		{Key: Key{"3", "1"}, First: Point{2, 2, 2}, Second: Point{2, 2, 5}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_NoCommonKeys(t *testing.T) {
	got, err := Merge(dataset("a", row("1", "1", 0, 0, 0)), dataset("b", row("2", "2", 0, 0, 0)), DuplicateReject)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no pairs, got %d", len(got))
	}
}

func TestMerge_LoadedKeys(t *testing.T) {
	tests := []struct {
		name          string
		first, second string
		wantKey       string
	}{
		{name: "integers past 2^53 stay distinct", first: "9007199254740993", second: "9007199254740992"},
		{name: "negative zero joins zero", first: "-0", second: "0", wantKey: "0"},
		{name: "float spelling joins integer", first: "12.0", second: "12", wantKey: "12"},
		{name: "large key keeps its digits", first: "1000000", second: "1000000", wantKey: "1000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := load(t, "a.csv", []string{tt.first, "1", "0", "0", "0"})
			b := load(t, "b.csv", []string{tt.second, "1", "0", "0", "1"})

			got, err := Merge(a, b, DuplicateReject)
			testutil.AssertNoError(t, err)
			if tt.wantKey == "" {
				if len(got) != 0 {
					t.Fatalf("expected no pairs, got %v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one pair, got %d", len(got))
			}
			if got[0].Key.PixelX != tt.wantKey {
				t.Errorf("PixelX = %q, want %q", got[0].Key.PixelX, tt.wantKey)
			}
		})
	}
}

func TestMerge_NilAndEmpty(t *testing.T) {
	got, err := Merge(nil, &Dataset{}, DuplicateFanout)
	if err != nil || len(got) != 0 {
		t.Errorf("Merge(nil, empty) = %v, %v", got, err)
	}
	got, err = Merge(dataset("a", row("1", "1", 0, 0, 0)), nil, DuplicateReject)
	if err != nil || len(got) != 0 {
		t.Errorf("Merge(a, nil) = %v, %v", got, err)
	}
}

func TestMerge_DuplicateReject(t *testing.T) {
	dup := dataset("dup.csv", row("1", "1", 0, 0, 0), row("1", "1", 5, 5, 5))
	clean := dataset("clean.csv", row("1", "1", 0, 0, 0))

	for _, tc := range []struct {
		name          string
		first, second *Dataset
	}{
		{"duplicate in first", dup, clean},
		{"duplicate in second", clean, dup},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Merge(tc.first, tc.second, DuplicateReject)
			if !errors.Is(err, ErrDuplicateKey) {
				t.Fatalf("error = %v, want ErrDuplicateKey", err)
			}
			want := "dup.csv: duplicate key (1, 1) on lines 2 and 3"
			if err.Error() != want {
				t.Errorf("error = %q, want %q", err, want)
			}
		})
	}
}

func TestMerge_DuplicateAfterCanonicalisation(t *testing.T) {
	dup := load(t, "dup.csv",
		[]string{"7", "1", "0", "0", "0"},
		[]string{"7.0", "1", "0", "0", "1"},
	)
	clean := load(t, "clean.csv", []string{"7", "1", "0", "0", "0"})

	_, err := Merge(dup, clean, DuplicateReject)
	testutil.AssertError(t, err)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("error = %v, want ErrDuplicateKey", err)
	}
}

func TestMerge_DuplicateFanout(t *testing.T) {
	first := dataset("a", row("1", "1", 0, 0, 0), row("1", "1", 1, 0, 0))
	second := dataset("b", row("1", "1", 0, 0, 10), row("1", "1", 0, 0, 20), row("1", "1", 0, 0, 30))

	got, err := Merge(first, second, DuplicateFanout)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("fan-out produced %d pairs, want 6", len(got))
	}
	if got[0].Second.Z != 10 || got[2].Second.Z != 30 || got[3].First.X != 1 {
		t.Errorf("unexpected fan-out order: %+v", got)
	}
}

// Property: for unique keys the merge size equals the number of common keys
// and no one-sided key survives.
func TestMerge_CardinalityProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 50; iter++ {
		inFirst := map[Key]bool{}
		inSecond := map[Key]bool{}
		var first, second []Row
		for k := 0; k < 40; k++ {
			key := Key{fmt.Sprint(k), "0"}
			if rng.Intn(3) > 0 {
				inFirst[key] = true
				first = append(first, Row{Key: key})
			}
			if rng.Intn(3) > 0 {
				inSecond[key] = true
				second = append(second, Row{Key: key})
			}
		}
		rng.Shuffle(len(second), func(i, j int) { second[i], second[j] = second[j], second[i] })

		common := 0
		for k := range inFirst {
			if inSecond[k] {
				common++
			}
		}

		pairs, err := Merge(&Dataset{Rows: first}, &Dataset{Rows: second}, DuplicateReject)
		if err != nil {
			t.Fatalf("iteration %d: %v", iter, err)
		}
		if len(pairs) != common {
			t.Fatalf("iteration %d: %d pairs, want %d", iter, len(pairs), common)
		}
		for _, p := range pairs {
			if !inFirst[p.Key] || !inSecond[p.Key] {
				t.Fatalf("iteration %d: one-sided key %v in output", iter, p.Key)
			}
		}
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	for in, want := range map[string]DuplicatePolicy{"": DuplicateReject, "reject": DuplicateReject, "fanout": DuplicateFanout} {
		got, err := ParseDuplicatePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseDuplicatePolicy(%q) = %v, %v", in, got, err)
		}
		if in != "" && got.String() != in {
			t.Errorf("String() = %q, want %q", got.String(), in)
		}
	}
	if _, err := ParseDuplicatePolicy("merge"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestPointSub(t *testing.T) {
	got := Point{1, 2, 3}.Sub(Point{0.5, 4, 3})
	if got != (Point{0.5, -2, 0}) {
		t.Errorf("Sub() = %+v", got)
	}
}
