package persist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

// LoadFile reads a persisted capture log file without constructing a
// store. Used by the CLI export command and by tests.
func LoadFile(path string) ([]*requestlog.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []*requestlog.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse capture log file %s: %w", path, err)
	}
	return entries, nil
}
