// Package validation checks file and format arguments given on the command line.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InputFile checks that path names an existing regular file with the given
// extension. An empty extension accepts any.
func InputFile(path, extension string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is not a regular file", path)
	}
	if extension != "" && !strings.EqualFold(filepath.Ext(path), extension) {
		return fmt.Errorf("expected a %s file: %s", extension, path)
	}
	return nil
}

// Delimiter parses a CSV delimiter. It must be a single character other than
// a quote or a line break.
func Delimiter(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	switch r := runes[0]; r {
	case '"', '\r', '\n':
		return 0, fmt.Errorf("invalid delimiter %q", r)
	default:
		return r, nil
	}
}
