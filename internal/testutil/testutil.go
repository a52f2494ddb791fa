// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the CSV fixtures used by the loader, analyzer,
// renderer and shell tests so every package builds inputs the same way.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DefaultHeader is the header written by the scanner export the tool was
// built against.
var DefaultHeader = []string{"//Pixel_X", "Pixel_Y", "X", "Y", "Z"}

// CSV joins a header and rows into CSV text. Cells are written verbatim.
func CSV(header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// PointCSV builds CSV text in the default header layout.
func PointCSV(rows ...[]string) string {
	return CSV(DefaultHeader, rows...)
}

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

// ScenarioFirst and ScenarioSecond are one matching point whose z differs by 2.
var (
	ScenarioFirst  = PointCSV([]string{"1", "1", "0", "0", "0"})
	ScenarioSecond = PointCSV([]string{"1", "1", "0", "0", "2"})
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
