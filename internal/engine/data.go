package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"stand/internal/common/fsutil"
)

// resolveDataFile turns request data into a file path the engine can read.
// Inline data maps are serialized to a temporary JSON file in the output
// dir; the returned cleanup removes it. A given data file path is validated
// and passed through with a no-op cleanup.
func (e *Engine) resolveDataFile(data map[string]any, dataFile string) (string, func(), error) {
	noop := func() {}
	if len(data) > 0 && dataFile != "" {
		return "", noop, ErrInvalidArgument("specify either inline data or data_file, not both")
	}
	if dataFile != "" {
		if !fsutil.PathExists(dataFile) {
			return "", noop, ErrInvalidArgument(fmt.Sprintf("no such data file: %s", dataFile))
		}
		return dataFile, noop, nil
	}
	if len(data) == 0 {
		return "", noop, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", noop, ErrInvalidArgument(fmt.Sprintf("encode data: %v", err))
	}
	p, err := fsutil.WriteTemp(e.cfg.OutputDir, "data-*.json", b)
	if err != nil {
		return "", noop, err
	}
	return p, func() { os.Remove(p) }, nil
}
