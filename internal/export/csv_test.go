package export

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeRow struct {
	a, b string
}

func (fakeRow) CSVHeader() []string  { return []string{"a", "b"} }
func (r fakeRow) CSVRow() []string   { return []string{r.a, r.b} }

func TestCSVWriterWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	w, err := NewCSVWriter(path, 0, true, fakeRow{}.CSVHeader())
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	w.WriteRecord(fakeRow{a: "1", b: "x"})
	w.WriteRecord(fakeRow{a: "2", b: "y"})
	if w.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", w.Rows())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (header + 2 rows), got %d: %v", len(lines), lines)
	}
	if lines[0] != "a,b" {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1,x") {
		t.Errorf("row 1 = %q", lines[1])
	}
}

func TestCSVWriterNoHeaderWhenNotRequested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noheader.csv")

	w, err := NewCSVWriter(path, 0, false, nil)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	w.WriteRow([]string{"only", "row"})
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Fatalf("expected exactly one line, got: %q", string(data))
	}
}

func TestCSVWriterFlushBeforeClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flush.csv")

	w, err := NewCSVWriter(path, 0, false, nil)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	defer w.Close()

	w.WriteRow([]string{"a"})
	w.Flush()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "a") {
		t.Fatalf("flushed data missing row: %q", string(data))
	}
}
