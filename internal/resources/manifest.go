package resources

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	KindLayout        = "layout"
	KindLiquidClasses = "liquid_classes"
	KindSubmethods    = "submethods"
)

// Manifest records every generated file and the resource it came from.
type Manifest struct {
	Package   string          `yaml:"package"`
	Generated []ManifestEntry `yaml:"generated"`
}

type ManifestEntry struct {
	Kind        string    `yaml:"kind"`
	Source      string    `yaml:"source"`
	Output      string    `yaml:"output"`
	Items       int       `yaml:"items"`
	GeneratedAt time.Time `yaml:"generated_at"`
}

// LoadManifest reads path; a missing file is an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("resources: parse %s: %w", path, err)
	}
	return &m, nil
}

// Record adds e, replacing any entry for the same output file.
func (m *Manifest) Record(e ManifestEntry) {
	for i := range m.Generated {
		if m.Generated[i].Output == e.Output {
			m.Generated[i] = e
			return
		}
	}
	m.Generated = append(m.Generated, e)
	sort.Slice(m.Generated, func(i, j int) bool { return m.Generated[i].Output < m.Generated[j].Output })
}

// Entry returns the record for output.
func (m *Manifest) Entry(output string) (ManifestEntry, bool) {
	for _, e := range m.Generated {
		if e.Output == output {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

func (m *Manifest) Save(path string) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
