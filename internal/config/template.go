package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the config file Init writes and Load looks for first.
const FileName = "codekg.yml"

// Template is the commented starter config written by Init.
//
//go:embed codekg.yml
var Template []byte

// WriteTemplate writes Template to dir/codekg.yml. An existing file is kept
// unless force is set; the returned bool reports whether the file was written.
func WriteTemplate(dir string, force bool) (bool, error) {
	path := filepath.Join(dir, FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := os.WriteFile(path, Template, 0o644); err != nil {
		return false, fmt.Errorf("config: write %s: %w", path, err)
	}
	return true, nil
}
