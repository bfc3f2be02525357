package mixin

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/mixy/pkg/archive"
	"github.com/platinummonkey/mixy/pkg/observability"
	"github.com/platinummonkey/mixy/pkg/vm"
)

var tracer = otel.Tracer("mixy/mixin")

var (
	// ErrArchiveIO is returned when a plugin archive cannot be opened or read
	ErrArchiveIO = errors.New("archive i/o failure")
	// ErrInvalidDescriptor is returned when mixin.yaml fails validation
	ErrInvalidDescriptor = errors.New("invalid mixin descriptor")
)

// ClassResolver resolves class names through the shared namespace
type ClassResolver interface {
	Resolve(ctx context.Context, name string) (*vm.Class, error)
}

// Scanner extracts mixin declarations and interceptor bindings from archives
type Scanner struct {
	log logrus.FieldLogger
}

// NewScanner creates a scanner
func NewScanner(log logrus.FieldLogger) *Scanner {
	if log == nil {
		log = logrus.New()
	}
	return &Scanner{log: log}
}

// Scan enumerates the class entries of the archive at path, resolves each one
// through ns, and returns the bindings declared for them. Failing to open or
// read the archive fails the whole scan; a class that does not resolve is
// logged and skipped.
func (s *Scanner) Scan(ctx context.Context, path string, ns ClassResolver) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Scan", trace.WithAttributes(attribute.String("mixy.archive", path)))
	defer span.End()

	result, err := s.scan(ctx, observability.WithTraceContext(ctx, s.log), path, ns)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("mixy.classes", result.Classes),
		attribute.Int("mixy.bindings", len(result.Bindings)),
	)
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, log logrus.FieldLogger, path string, ns ClassResolver) (*Result, error) {
	r, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveIO, err)
	}
	defer r.Close()

	descriptor, err := s.readDescriptor(r)
	if err != nil {
		return nil, err
	}

	result := &Result{Archive: path}
	found := make(map[string]bool)

	for _, entry := range r.Entries() {
		name, ok := archive.ClassName(entry)
		if !ok {
			continue
		}
		result.Classes++
		found[name] = true

		class, err := ns.Resolve(ctx, name)
		if err != nil {
			log.WithError(err).Errorf("Failed to resolve class %s from %s", name, path)
			result.Skipped++
			continue
		}

		spec, ok := descriptor.lookup(name)
		if !ok {
			continue
		}

		result.Declarations = append(result.Declarations, Declaration{
			TargetClassName:      spec.Target,
			InterceptorClassName: name,
			DefiningArchive:      path,
		})
		result.Bindings = append(result.Bindings, s.bindings(log, spec, class)...)
	}

	for _, spec := range descriptor.Mixins {
		if !found[spec.Class] {
			log.Warnf("Descriptor in %s declares mixin %s but the archive has no such class", path, spec.Class)
		}
	}

	return result, nil
}

func (s *Scanner) readDescriptor(r *archive.Reader) (*Descriptor, error) {
	if !r.Has(archive.DescriptorName) {
		return &Descriptor{}, nil
	}

	data, err := r.ReadFile(archive.DescriptorName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveIO, err)
	}

	descriptor, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, r.Path(), err)
	}

	if validationErrors := ValidateDescriptor(descriptor); len(validationErrors) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, r.Path(), validationErrors)
	}

	return descriptor, nil
}

// bindings yields one binding per recognized annotation on each declared
// method that exists as a function of the resolved class
func (s *Scanner) bindings(log logrus.FieldLogger, spec *MixinSpec, class *vm.Class) []Binding {
	var bindings []Binding

	for _, method := range spec.Methods {
		if len(method.Annotations) == 0 {
			continue
		}

		if _, ok := class.Method(method.Name); !ok {
			log.Errorf("Mixin %s declares method %s but the class does not define it", class.Name, method.Name)
			continue
		}

		for _, annotation := range method.Annotations {
			advice, ok := AdviceFor(annotation)
			if !ok {
				log.Warnf("Ignoring annotation %s on %s.%s: not an interceptor marker", annotation, class.Name, method.Name)
				continue
			}

			b := Binding{
				TargetClassName:       spec.Target,
				TargetMethodName:      method.TargetMethod(),
				InterceptorClassName:  class.Name,
				InterceptorMethodName: method.Name,
				Advice:                advice,
			}
			log.Infof("Adding interceptor %s", b)
			bindings = append(bindings, b)
		}
	}

	return bindings
}
