package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/mixy/pkg/archive"
	"github.com/platinummonkey/mixy/pkg/config"
	"github.com/platinummonkey/mixy/pkg/intercept"
	"github.com/platinummonkey/mixy/pkg/mixin"
	"github.com/platinummonkey/mixy/pkg/namespace"
	"github.com/platinummonkey/mixy/pkg/observability"
	"github.com/platinummonkey/mixy/pkg/vm"
)

var tracer = otel.Tracer("mixy/launch")

var (
	// ErrNotBootstrapped is returned when a phase runs before Bootstrap
	ErrNotBootstrapped = errors.New("coordinator is not bootstrapped")
	// ErrAlreadyBootstrapped is returned when Bootstrap is called twice
	ErrAlreadyBootstrapped = errors.New("coordinator is already bootstrapped")
	// ErrPrimaryNotFound is returned when the primary archive does not exist
	ErrPrimaryNotFound = errors.New("specified jar file does not exist")
	// ErrNoPrimary is returned by RunPrimary before a primary archive is loaded
	ErrNoPrimary = errors.New("no primary archive loaded")
	// ErrEntryPoint is returned when the primary entry point cannot be resolved or fails
	ErrEntryPoint = errors.New("entry point failed")
)

// EntryMethod is the method invoked on the primary archive's main class
const EntryMethod = "main"

// Coordinator sequences a run: bootstrap, primary archive, plugin archives,
// interceptor installation, and finally the primary entry point.
type Coordinator struct {
	log     logrus.FieldLogger
	stdout  io.Writer
	metrics *observability.Metrics
	health  *observability.HealthChecker
	engine  intercept.Engine

	vm       *vm.VM
	inst     *vm.Instrumentation
	loader   *namespace.Loader
	scanner  *mixin.Scanner
	registry *intercept.Registry
	primary  string
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithStdout redirects output printed by archive code
func WithStdout(w io.Writer) Option {
	return func(c *Coordinator) {
		c.stdout = w
	}
}

// WithMetrics enables metric recording
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithHealth reports phase transitions to h
func WithHealth(h *observability.HealthChecker) Option {
	return func(c *Coordinator) {
		c.health = h
	}
}

// WithEngine replaces the default advice engine
func WithEngine(e intercept.Engine) Option {
	return func(c *Coordinator) {
		c.engine = e
	}
}

// New creates a coordinator
func New(log logrus.FieldLogger, opts ...Option) *Coordinator {
	if log == nil {
		log = logrus.New()
	}

	c := &Coordinator{
		log:    log,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = intercept.NewAdviceEngine(log)
	}

	return c
}

// Bootstrap creates the VM and acquires its instrumentation handle
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	_, span := tracer.Start(ctx, "Bootstrap")
	defer span.End()
	defer c.observe(observability.PhaseBootstrap, time.Now())
	c.setPhase(observability.PhaseBootstrap, "")

	if c.vm != nil {
		return ErrAlreadyBootstrapped
	}

	v := vm.New(vm.WithStdout(c.stdout), vm.WithLogger(c.log))
	inst, err := v.Instrumentation()
	if err != nil {
		v.Close()
		err = fmt.Errorf("failed to acquire instrumentation: %w", err)
		fail(span, err)
		c.log.WithError(err).Error("Bootstrap failed")
		return err
	}

	c.vm = v
	c.inst = inst
	c.loader = namespace.NewLoader(v, c.log)
	c.scanner = mixin.NewScanner(c.log)
	c.registry = intercept.NewRegistry(c.engine, c.log)
	c.registry.SetMetrics(c.metrics)

	c.log.Debug("Bootstrapped VM")
	return nil
}

// LoadPrimary adds the primary archive to the namespace and remembers it for RunPrimary
func (c *Coordinator) LoadPrimary(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "LoadPrimary", trace.WithAttributes(attribute.String("mixy.archive", path)))
	defer span.End()
	defer c.observe(observability.PhasePrimary, time.Now())
	c.setPhase(observability.PhasePrimary, path)
	log := observability.WithTraceContext(ctx, c.log)

	if c.vm == nil {
		return ErrNotBootstrapped
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrPrimaryNotFound, path)
		} else {
			err = fmt.Errorf("failed to stat primary archive %s: %w", path, err)
		}
		fail(span, err)
		log.WithError(err).Error("Failed to load primary archive")
		c.recordArchive("primary", "failed")
		return err
	}

	a, err := c.loader.Load(ctx, path)
	if err != nil {
		fail(span, err)
		c.recordArchive("primary", "failed")
		return err
	}

	c.primary = a.Path
	c.recordArchive("primary", "ok")
	return nil
}

// LoadMixins loads, scans and registers every regular file directly inside dir,
// in filename order, then installs the collected bindings. Symlinks are
// followed; anything that does not resolve to a regular file is skipped. The directory is
// created if missing. The first archive that cannot be loaded or scanned stops
// the loop; bindings registered before it are still installed.
func (c *Coordinator) LoadMixins(ctx context.Context, dir string) error {
	ctx, span := tracer.Start(ctx, "LoadMixins", trace.WithAttributes(attribute.String("mixy.dir", dir)))
	defer span.End()
	defer c.observe(observability.PhaseMixins, time.Now())
	c.setPhase(observability.PhaseMixins, dir)
	log := observability.WithTraceContext(ctx, c.log)

	if c.vm == nil {
		return ErrNotBootstrapped
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("failed to create mixins directory %s: %w", dir, err)
		fail(span, err)
		log.WithError(err).Error("Failed to load mixins")
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		err = fmt.Errorf("failed to list mixins directory %s: %w", dir, err)
		fail(span, err)
		log.WithError(err).Error("Failed to load mixins")
		return err
	}

	var loadErr error
	archives := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			log.Debugf("Skipping %s in %s: not a regular file", entry.Name(), dir)
			continue
		}

		if err := c.loadMixin(ctx, log, path); err != nil {
			loadErr = err
			log.WithError(err).Errorf("Aborting mixin loading at %s", path)
			break
		}
		archives++
	}
	span.SetAttributes(attribute.Int("mixy.archives", archives))

	installErr := c.registry.Install(ctx, c.inst)
	if err := errors.Join(loadErr, installErr); err != nil {
		fail(span, err)
		return fmt.Errorf("failed to load mixins: %w", err)
	}

	return nil
}

func (c *Coordinator) loadMixin(ctx context.Context, log logrus.FieldLogger, path string) error {
	if _, err := c.loader.Load(ctx, path); err != nil {
		c.recordArchive("mixin", "failed")
		return fmt.Errorf("%w: %v", mixin.ErrArchiveIO, err)
	}

	result, err := c.scanner.Scan(ctx, path, c.loader.Namespace())
	if err != nil {
		c.recordArchive("mixin", "failed")
		return err
	}
	c.recordArchive("mixin", "ok")

	if c.metrics != nil {
		c.metrics.ClassesScannedTotal.WithLabelValues("resolved").Add(float64(result.Classes - result.Skipped))
		c.metrics.ClassesScannedTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
		c.metrics.MixinsDeclaredTotal.Add(float64(len(result.Declarations)))
	}

	for _, d := range result.Declarations {
		log.Infof("Found mixin %s targeting %s", d.InterceptorClassName, d.TargetClassName)
	}
	c.registry.Register(result.Bindings...)

	return nil
}

// RunPrimary resolves the primary archive's main class and invokes its main
// method with an empty argument table
func (c *Coordinator) RunPrimary(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RunPrimary")
	defer span.End()
	defer c.observe(observability.PhaseRunning, time.Now())

	if c.vm == nil {
		return ErrNotBootstrapped
	}
	if c.primary == "" {
		return ErrNoPrimary
	}

	log := observability.WithTraceContext(ctx, c.log)
	err := c.runPrimary(ctx, log, span)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEntryPoint, err)
		fail(span, err)
		log.WithError(err).Error("Failed to run primary archive")
	}
	return err
}

func (c *Coordinator) runPrimary(ctx context.Context, log logrus.FieldLogger, span trace.Span) error {
	manifest, err := archive.LoadManifest(c.primary)
	if err != nil {
		return err
	}
	if err := archive.ValidateManifest(manifest); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("mixy.main_class", manifest.MainClass))
	c.setPhase(observability.PhaseRunning, manifest.MainClass)

	class, err := c.loader.Namespace().Resolve(ctx, manifest.MainClass)
	if err != nil {
		return err
	}

	entry, ok := class.Method(EntryMethod)
	if !ok {
		return fmt.Errorf("class %s has no %s method", manifest.MainClass, EntryMethod)
	}

	log.Infof("Running %s.%s from %s", manifest.MainClass, EntryMethod, c.primary)
	return c.vm.Call(ctx, entry, c.vm.State().NewTable())
}

// Run performs a whole launch. The primary entry point only runs when every
// earlier phase succeeded; panics are recovered and returned as errors.
func (c *Coordinator) Run(ctx context.Context, cfg *config.Config) (err error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	defer func() {
		c.finish(err)
		if err != nil {
			fail(span, err)
		}
	}()
	defer observability.RecoverToError(c.log, "launch", &err)

	if err := cfg.Validate(); err != nil {
		c.log.WithError(err).Error("Invalid configuration")
		return err
	}

	if err := c.Bootstrap(ctx); err != nil {
		return err
	}
	if err := c.LoadPrimary(ctx, cfg.PrimaryArchive); err != nil {
		return err
	}
	if err := c.LoadMixins(ctx, cfg.MixinsDir); err != nil {
		return err
	}
	return c.RunPrimary(ctx)
}

// VM returns the VM, or nil before Bootstrap
func (c *Coordinator) VM() *vm.VM {
	return c.vm
}

// Namespace returns the namespace, or nil before the first archive is loaded
func (c *Coordinator) Namespace() *namespace.Namespace {
	if c.loader == nil {
		return nil
	}
	return c.loader.Namespace()
}

// Registry returns the interceptor registry, or nil before Bootstrap
func (c *Coordinator) Registry() *intercept.Registry {
	return c.registry
}

// Primary returns the loaded primary archive path
func (c *Coordinator) Primary() string {
	return c.primary
}

// Close releases archives and the VM
func (c *Coordinator) Close() error {
	var err error
	if ns := c.Namespace(); ns != nil {
		err = ns.Close()
	}
	if c.vm != nil {
		c.vm.Close()
	}
	return err
}

func (c *Coordinator) finish(err error) {
	status := "ok"
	if err != nil {
		status = "failed"
		c.setPhase(observability.PhaseFailed, err.Error())
	} else {
		c.setPhase(observability.PhaseFinished, "")
	}
	if c.metrics != nil {
		c.metrics.RunsTotal.WithLabelValues(status).Inc()
	}
}

func (c *Coordinator) setPhase(phase observability.Phase, message string) {
	if c.health != nil {
		c.health.SetPhase(phase, message)
	}
}

func (c *Coordinator) observe(phase observability.Phase, start time.Time) {
	if c.metrics != nil {
		c.metrics.PhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
	}
}

func (c *Coordinator) recordArchive(role, status string) {
	if c.metrics != nil {
		c.metrics.ArchivesLoadedTotal.WithLabelValues(role, status).Inc()
	}
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
