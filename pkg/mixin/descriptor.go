package mixin

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/mixy/pkg/archive"
)

// Descriptor lists the mixins an archive declares
type Descriptor struct {
	Mixins []MixinSpec `yaml:"mixins"`
}

// MixinSpec is the class-level marker: Class augments Target
type MixinSpec struct {
	Class   string       `yaml:"class"`   // Mixin class defined by this archive
	Target  string       `yaml:"target"`  // Fully-qualified class to augment
	Methods []MethodSpec `yaml:"methods"` // Declared methods of the mixin class
}

// MethodSpec is a declared method and its annotations
type MethodSpec struct {
	Name        string       `yaml:"name"`             // Interceptor function on the mixin class
	Target      string       `yaml:"target,omitempty"` // Target method, defaults to Name
	Annotations []Annotation `yaml:"annotations"`
}

// TargetMethod returns the intercepted method name
func (m MethodSpec) TargetMethod() string {
	if m.Target != "" {
		return m.Target
	}
	return m.Name
}

// ValidationError is a descriptor problem
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ParseDescriptor decodes descriptor data
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	return &d, nil
}

// MarshalDescriptor encodes a descriptor
func MarshalDescriptor(d *Descriptor) ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return data, nil
}

// ValidateDescriptor performs structural validation. Unknown annotations are
// not errors here; the scanner reports and ignores them.
func ValidateDescriptor(d *Descriptor) []ValidationError {
	var errors []ValidationError
	seen := make(map[string]bool)

	for i, m := range d.Mixins {
		prefix := fmt.Sprintf("mixins[%d]", i)

		if m.Class == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".class",
				Message: "Mixin class is required",
			})
		} else if !archive.IsValidClassName(m.Class) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".class",
				Message: fmt.Sprintf("Invalid class name: %s", m.Class),
			})
		} else if seen[m.Class] {
			errors = append(errors, ValidationError{
				Field:   prefix + ".class",
				Message: fmt.Sprintf("Duplicate mixin class: %s", m.Class),
			})
		}
		seen[m.Class] = true

		if m.Target == "" {
			errors = append(errors, ValidationError{
				Field:   prefix + ".target",
				Message: "Target class is required",
			})
		} else if !archive.IsValidClassName(m.Target) {
			errors = append(errors, ValidationError{
				Field:   prefix + ".target",
				Message: fmt.Sprintf("Invalid class name: %s", m.Target),
			})
		}

		for j, method := range m.Methods {
			if method.Name == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("%s.methods[%d].name", prefix, j),
					Message: "Method name is required",
				})
			}
		}
	}

	return errors
}

func (d *Descriptor) lookup(class string) (*MixinSpec, bool) {
	for i := range d.Mixins {
		if d.Mixins[i].Class == class {
			return &d.Mixins[i], true
		}
	}
	return nil, false
}
