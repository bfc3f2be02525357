package namespace

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/mixy/pkg/archive"
	"github.com/platinummonkey/mixy/pkg/vm"
)

// Loader incrementally loads archives into the namespace of a VM. The first
// successful Load creates the namespace; later loads extend the same one.
type Loader struct {
	vm  *vm.VM
	ns  *Namespace
	log logrus.FieldLogger
}

// NewLoader creates a loader for v
func NewLoader(v *vm.VM, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.New()
	}

	return &Loader{
		vm:  v,
		log: log,
	}
}

// Load adds the archive at path to the namespace. Loading the same path twice
// appends it twice.
func (l *Loader) Load(ctx context.Context, path string) (*archive.Archive, error) {
	_, span := tracer.Start(ctx, "Load", trace.WithAttributes(attribute.String("mixy.archive", path)))
	defer span.End()

	if _, err := resolveLocation(path); err != nil {
		l.log.WithError(err).Errorf("Failed to load archive %s", path)
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}

	if l.ns == nil {
		ns, err := New(l.vm, l.log)
		if err != nil {
			l.log.WithError(err).Errorf("Failed to create namespace for %s", path)
			return nil, err
		}
		l.ns = ns
		l.log.Debugf("Created namespace from %s", path)
	}

	a, err := l.ns.Add(path)
	if err != nil {
		l.log.WithError(err).Errorf("Failed to load archive %s", path)
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}

	l.log.Infof("Loaded archive %s", a.Path)
	return a, nil
}

// Namespace returns the namespace, or nil before the first Load
func (l *Loader) Namespace() *Namespace {
	return l.ns
}
