// Package namespace implements the shared code-loading namespace.
//
// A Namespace is an ordered list of archives bound to one VM. Class lookups
// search archives in the order they were added and the first archive holding
// the class entry wins. Archives are only ever appended.
package namespace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/mixy/pkg/archive"
	"github.com/platinummonkey/mixy/pkg/vm"
)

var tracer = otel.Tracer("mixy/namespace")

const locationCacheSize = 4096

var (
	// ErrClassNotFound is returned when no archive contains the class entry
	ErrClassNotFound = errors.New("class not found")
	// ErrImportCycle is returned when a class imports itself during materialization
	ErrImportCycle = errors.New("import cycle")
	// ErrInvalidLocation is returned when an archive path cannot be loaded
	ErrInvalidLocation = errors.New("invalid archive location")
)

type source struct {
	archive *archive.Archive
	reader  *archive.Reader
	openErr error
	opened  bool
}

// Namespace resolves classes across every archive contributed to it
type Namespace struct {
	vm        *vm.VM
	log       logrus.FieldLogger
	sources   []*source
	locations *lru.Cache[string, int]
	resolving map[string]bool
}

// New creates a namespace bound to v. A VM accepts exactly one namespace.
func New(v *vm.VM, log logrus.FieldLogger) (*Namespace, error) {
	if log == nil {
		log = logrus.New()
	}

	locations, err := lru.New[string, int](locationCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create location cache: %w", err)
	}

	ns := &Namespace{
		vm:        v,
		log:       log,
		locations: locations,
		resolving: make(map[string]bool),
	}
	if err := v.Attach(ns); err != nil {
		return nil, fmt.Errorf("failed to attach namespace: %w", err)
	}

	return ns, nil
}

// Add appends an archive. The path must name an existing regular file; the
// archive itself is opened lazily on first lookup.
func (n *Namespace) Add(path string) (*archive.Archive, error) {
	abs, err := resolveLocation(path)
	if err != nil {
		return nil, err
	}

	a := &archive.Archive{Path: abs, Loaded: true}
	n.sources = append(n.sources, &source{archive: a})

	return a, nil
}

// Archives returns contributed archives in namespace order
func (n *Namespace) Archives() []*archive.Archive {
	archives := make([]*archive.Archive, 0, len(n.sources))
	for _, s := range n.sources {
		archives = append(archives, s.archive)
	}
	return archives
}

// Locate returns the archive that defines a class, without materializing it
func (n *Namespace) Locate(name string) (*archive.Archive, bool) {
	idx, ok := n.locate(name)
	if !ok {
		return nil, false
	}
	return n.sources[idx].archive, true
}

// Resolve returns the class, materializing it on first use
func (n *Namespace) Resolve(ctx context.Context, name string) (*vm.Class, error) {
	if class, ok := n.vm.Lookup(name); ok {
		return class, nil
	}

	ctx, span := tracer.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("mixy.class", name)),
	)
	defer span.End()

	class, err := n.materialize(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return class, nil
}

// Close releases every opened archive
func (n *Namespace) Close() error {
	var errs []error
	for _, s := range n.sources {
		if s.reader != nil {
			if err := s.reader.Close(); err != nil {
				errs = append(errs, err)
			}
			s.reader = nil
			s.opened = false
		}
	}
	return errors.Join(errs...)
}

func (n *Namespace) materialize(ctx context.Context, name string) (*vm.Class, error) {
	if n.resolving[name] {
		return nil, fmt.Errorf("%w: %s", ErrImportCycle, name)
	}

	idx, ok := n.locate(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	src := n.sources[idx]
	if !n.open(src) {
		return nil, fmt.Errorf("failed to read %s: %w", name, src.openErr)
	}
	entry := archive.EntryName(name)

	data, err := src.reader.ReadFile(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	unit, err := n.vm.State().Load(bytes.NewReader(data), "@"+src.archive.Path+"!"+entry)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}

	n.resolving[name] = true
	defer delete(n.resolving, name)

	return n.vm.Define(ctx, name, src.archive.Path, unit)
}

// locate finds the first archive holding the class entry. Only hits are
// cached: appending an archive can never shadow an earlier one.
func (n *Namespace) locate(name string) (int, bool) {
	if idx, ok := n.locations.Get(name); ok {
		return idx, true
	}

	entry := archive.EntryName(name)
	for i, s := range n.sources {
		if !n.open(s) {
			continue
		}
		if s.reader.Has(entry) {
			n.locations.Add(name, i)
			return i, true
		}
	}

	return 0, false
}

func (n *Namespace) open(s *source) bool {
	if !s.opened {
		s.opened = true
		s.reader, s.openErr = archive.Open(s.archive.Path)
		if s.openErr != nil {
			n.log.WithError(s.openErr).Errorf("Skipping unreadable archive %s", s.archive.Path)
		}
	}
	return s.openErr == nil
}

func resolveLocation(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidLocation, path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidLocation, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInvalidLocation, path)
	}

	return abs, nil
}
