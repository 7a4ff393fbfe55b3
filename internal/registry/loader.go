package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stand/internal/common/fsutil"
	"stand/internal/model"
	"stand/pkg/types"
)

// LoadDir scans a directory for *.stan program files and builds a registry.
// ID is the program basename without extension; a compiled executable with
// the matching basename in the same directory marks the entry compiled.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		// case-sensitive on purpose: model handle validation accepts
		// only the lowercase extension
		if !strings.HasSuffix(name, ".stan") {
			continue
		}
		id := strings.TrimSuffix(name, ".stan")
		if id == "" {
			continue
		}
		m := types.Model{
			ID:       id,
			Name:     id,
			StanFile: filepath.Join(abs, name),
		}
		exe := filepath.Join(abs, id+model.ExeSuffix())
		if st, err := os.Stat(exe); err == nil && !st.IsDir() {
			m.ExeFile = exe
			m.Compiled = true
		}
		models = append(models, m)
	}
	return models, nil
}
