package render

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file listing the templates of a template set.
const ManifestName = "templates.yaml"

// Manifest lists the templates of a template set.
type Manifest struct {
	Templates []Entry `yaml:"templates"`
}

// Entry maps one template source to the file it renders. Target is itself a
// template, so it may reference run fields such as {{ .RunName }}.
type Entry struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// ParseManifest decodes and validates a manifest payload.
func ParseManifest(data []byte) (Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Manifest{}, fmt.Errorf("manifest is empty")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m.Normalized(), nil
}

// LoadManifest reads ManifestName from the root of a template set.
func LoadManifest(templates fs.FS) (Manifest, error) {
	data, err := fs.ReadFile(templates, ManifestName)
	if err != nil {
		return Manifest{}, fmt.Errorf("read %s: %w", ManifestName, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", ManifestName, err)
	}
	return m, nil
}

// Validate checks that every entry names a source inside the template set
// and a target.
func (m Manifest) Validate() error {
	if len(m.Templates) == 0 {
		return fmt.Errorf("no templates listed")
	}
	seen := make(map[string]bool, len(m.Templates))
	for i, e := range m.Templates {
		source := strings.TrimSpace(e.Source)
		if source == "" {
			return fmt.Errorf("templates[%d]: source is required", i)
		}
		if !fs.ValidPath(path.Clean(source)) {
			return fmt.Errorf("templates[%d]: source %q must be a relative path inside the template set", i, source)
		}
		if strings.TrimSpace(e.Target) == "" {
			return fmt.Errorf("templates[%d]: target is required", i)
		}
		if seen[source] {
			return fmt.Errorf("templates[%d]: source %q listed twice", i, source)
		}
		seen[source] = true
	}
	return nil
}

// Normalized returns a copy with trimmed, cleaned paths.
func (m Manifest) Normalized() Manifest {
	out := Manifest{Templates: make([]Entry, len(m.Templates))}
	for i, e := range m.Templates {
		out.Templates[i] = Entry{
			Source: path.Clean(strings.TrimSpace(e.Source)),
			Target: strings.TrimSpace(e.Target),
		}
	}
	return out
}
