// Package stancsv parses the CSV files the CmdStan engine writes. The
// format interleaves '#'-prefixed configuration/adaptation lines with one
// header row of column names and numeric data rows.
package stancsv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Table is a parsed Stan CSV file: ordered column names and numeric rows.
type Table struct {
	Columns  []string
	Rows     [][]float64
	Comments []string
}

// Parse reads a Stan CSV stream. Comment lines may appear before and after
// the header. Every data row must match the header width.
func Parse(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	t := &Table{}
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "#") {
			t.Comments = append(t.Comments, strings.TrimSpace(strings.TrimPrefix(raw, "#")))
			continue
		}
		if t.Columns == nil {
			cols := strings.Split(raw, ",")
			for i := range cols {
				cols[i] = strings.TrimSpace(cols[i])
				if cols[i] == "" {
					return nil, fmt.Errorf("line %d: empty column name", line)
				}
			}
			t.Columns = cols
			continue
		}
		cells := strings.Split(raw, ",")
		if len(cells) != len(t.Columns) {
			return nil, fmt.Errorf("line %d: %d cells, want %d", line, len(cells), len(t.Columns))
		}
		row := make([]float64, len(cells))
		for i, c := range cells {
			v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad value %q: %w", line, c, err)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if t.Columns == nil {
		return nil, fmt.Errorf("no header row found")
	}
	return t, nil
}

// ParseFile parses a Stan CSV file from disk.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Variational is parsed output of a variational run: the first numeric row
// is the posterior mean estimate, the remaining rows are draws from the
// approximate posterior.
type Variational struct {
	Columns  []string
	Estimate []float64
	Draws    [][]float64
}

// ParseVariational splits a parsed Stan CSV into estimate and draws.
func ParseVariational(r io.Reader) (*Variational, error) {
	t, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("variational output has no estimate row")
	}
	return &Variational{
		Columns:  t.Columns,
		Estimate: t.Rows[0],
		Draws:    t.Rows[1:],
	}, nil
}

// ParseVariationalFile parses a variational output file from disk.
func ParseVariationalFile(path string) (*Variational, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	v, err := ParseVariational(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// SameColumns reports whether two header rows agree exactly.
func SameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
