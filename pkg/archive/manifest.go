package archive

import (
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrNoMainClass is returned when a manifest does not declare an entry point
var ErrNoMainClass = errors.New("manifest does not declare main-class")

var classNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Manifest describes a primary archive
type Manifest struct {
	MainClass string            `yaml:"main-class"`         // Fully-qualified entry point class
	Name      string            `yaml:"name,omitempty"`     // Display name
	Version   string            `yaml:"version,omitempty"`  // Free-form version string
	Metadata  map[string]string `yaml:"metadata,omitempty"` // Additional key/value pairs
}

// ParseManifest decodes manifest data
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &manifest, nil
}

// MarshalManifest encodes a manifest
func MarshalManifest(manifest *Manifest) ([]byte, error) {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// ReadManifest loads the manifest of an open archive
func (r *Reader) ReadManifest() (*Manifest, error) {
	data, err := r.ReadFile(ManifestName)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// LoadManifest opens the archive at path and loads its manifest
func LoadManifest(path string) (*Manifest, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.ReadManifest()
}

// ValidateManifest checks that a manifest names a usable entry point
func ValidateManifest(manifest *Manifest) error {
	if manifest.MainClass == "" {
		return ErrNoMainClass
	}
	if !IsValidClassName(manifest.MainClass) {
		return fmt.Errorf("invalid main-class %q", manifest.MainClass)
	}
	return nil
}

// IsValidClassName reports whether name is a well-formed fully-qualified class name
func IsValidClassName(name string) bool {
	return classNameRegex.MatchString(name)
}
