package logic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Manifest describes a multi-file upload. Files and Passwords are matched by position.
type Manifest struct {
	Files     []string `json:"files"`
	Passwords []string `json:"passwords"`
}

// LoadManifest reads a JSONC manifest. Relative file paths are resolved against the
// manifest's directory. Length mismatches are left for the sealer to reject.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from user-supplied config
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	clean := jsonc.ToJSONInPlace(data)

	var m Manifest
	if err := json.Unmarshal(clean, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest %q: %w", path, err)
	}

	base := filepath.Dir(path)

	for i, file := range m.Files {
		if !filepath.IsAbs(file) {
			m.Files[i] = filepath.Join(base, file)
		}
	}

	return m, nil
}
