// Package component handles the versioned-component convention: each
// top-level directory under the schema root is one component, and an
// optional versions file attaches an opaque semantic version label to
// every component. The pipeline attaches the label to emitted
// artifacts for traceability and performs no comparison logic on it.
package component

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Versions maps a component name to its version label.
type Versions map[string]string

type versionsFile struct {
	Components map[string]string `yaml:"components"`
}

// LoadVersions reads a versions file. An empty path yields an empty
// map; a configured-but-missing file is an error, because artifacts
// would silently lose their traceability label.
func LoadVersions(path string) (Versions, error) {
	if path == "" {
		return Versions{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading versions file: %w", err)
	}
	var f versionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing versions file %s: %w", path, err)
	}
	if f.Components == nil {
		f.Components = map[string]string{}
	}
	return Versions(f.Components), nil
}
