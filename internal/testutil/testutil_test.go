package testutil

import (
	"errors"
	"os"
	"testing"
)

func TestCSV(t *testing.T) {
	got := CSV([]string{"a", "b"}, []string{"1", "2"}, []string{"3", "4"})
	want := "a,b\n1,2\n3,4\n"
	if got != want {
		t.Errorf("CSV() = %q, want %q", got, want)
	}
}

func TestPointCSV(t *testing.T) {
	got := PointCSV([]string{"1", "1", "0", "0", "0"})
	want := "//Pixel_X,Pixel_Y,X,Y,Z\n1,1,0,0,0\n"
	if got != want {
		t.Errorf("PointCSV() = %q, want %q", got, want)
	}
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "first.csv", ScenarioFirst)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != ScenarioFirst {
		t.Errorf("content = %q", data)
	}
}

func TestAssertHelpers(t *testing.T) {
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
}
