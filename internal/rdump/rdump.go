// Package rdump encodes data variables in the Rdump format the CmdStan
// engine accepts for data and init files.
package rdump

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Write encodes vars to w. Supported value types: int, int64, float64,
// []int, []float64, and [][]float64 (matrices, written column-major per the
// R dump convention). Keys are written in sorted order for stable output.
func Write(w io.Writer, vars map[string]any) error {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, err := encode(k, vars[k])
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, s+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile encodes vars to path, truncating any existing file.
func WriteFile(path string, vars map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, vars); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encode(name string, v any) (string, error) {
	switch x := v.(type) {
	case int:
		return fmt.Sprintf("%s <- %d", name, x), nil
	case int64:
		return fmt.Sprintf("%s <- %d", name, x), nil
	case float64:
		return fmt.Sprintf("%s <- %s", name, num(x)), nil
	case []int:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = strconv.Itoa(e)
		}
		return fmt.Sprintf("%s <- c(%s)", name, strings.Join(parts, ", ")), nil
	case []float64:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = num(e)
		}
		return fmt.Sprintf("%s <- c(%s)", name, strings.Join(parts, ", ")), nil
	case [][]float64:
		rows := len(x)
		if rows == 0 {
			return fmt.Sprintf("%s <- structure(c(), .Dim = c(0, 0))", name), nil
		}
		cols := len(x[0])
		for _, r := range x {
			if len(r) != cols {
				return "", fmt.Errorf("%s: ragged matrix", name)
			}
		}
		// column-major flattening
		parts := make([]string, 0, rows*cols)
		for c := 0; c < cols; c++ {
			for r := 0; r < rows; r++ {
				parts = append(parts, num(x[r][c]))
			}
		}
		return fmt.Sprintf("%s <- structure(c(%s), .Dim = c(%d, %d))", name, strings.Join(parts, ", "), rows, cols), nil
	default:
		return "", fmt.Errorf("%s: unsupported type %T", name, v)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Normalize coerces JSON-decoded values (float64 scalars, []any vectors,
// nested []any matrices) into the types Write accepts. Non-numeric values
// are rejected.
func Normalize(vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		nv, err := normalizeValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(name string, v any) (any, error) {
	switch x := v.(type) {
	case int, int64, float64, []int, []float64, [][]float64:
		return x, nil
	case []any:
		if len(x) == 0 {
			return []float64{}, nil
		}
		if _, ok := x[0].([]any); ok {
			m := make([][]float64, len(x))
			for i, row := range x {
				r, ok := row.([]any)
				if !ok {
					return nil, fmt.Errorf("%s: mixed vector and matrix rows", name)
				}
				m[i] = make([]float64, len(r))
				for j, e := range r {
					f, ok := toFloat(e)
					if !ok {
						return nil, fmt.Errorf("%s: non-numeric element %v", name, e)
					}
					m[i][j] = f
				}
			}
			return m, nil
		}
		vec := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("%s: non-numeric element %v", name, e)
			}
			vec[i] = f
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %T", name, v)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
