package intercept

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/mixy/pkg/mixin"
	"github.com/platinummonkey/mixy/pkg/observability"
	"github.com/platinummonkey/mixy/pkg/vm"
)

var tracer = otel.Tracer("mixy/intercept")

// Registry accumulates bindings in arrival order and installs them through an engine
type Registry struct {
	engine   Engine
	bindings []mixin.Binding
	targets  map[string]int
	log      logrus.FieldLogger
	metrics  *observability.Metrics
}

// NewRegistry creates a registry backed by engine
func NewRegistry(engine Engine, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.New()
	}

	return &Registry{
		engine:  engine,
		targets: make(map[string]int),
		log:     log,
	}
}

// SetMetrics enables metric recording
func (r *Registry) SetMetrics(m *observability.Metrics) {
	r.metrics = m
}

// Register appends bindings, preserving order
func (r *Registry) Register(bindings ...mixin.Binding) {
	for _, b := range bindings {
		if n := r.targets[b.Target()]; n > 0 {
			r.log.Infof("Chaining interceptor %s after %d existing binding(s)", b, n)
		}
		r.targets[b.Target()]++
		r.bindings = append(r.bindings, b)

		if r.metrics != nil {
			r.metrics.BindingsRegisteredTotal.Inc()
		}
	}
}

// Bindings returns the registered bindings in order
func (r *Registry) Bindings() []mixin.Binding {
	bindings := make([]mixin.Binding, len(r.bindings))
	copy(bindings, r.bindings)
	return bindings
}

// Len returns the number of registered bindings
func (r *Registry) Len() int {
	return len(r.bindings)
}

// Install hands every binding, in order, to the engine and installs them on
// inst. Bindings whose target class is already loaded are logged and skipped;
// other per-binding failures are logged and returned joined. A registered
// binding only takes effect once its target class is defined and the engine
// finds both methods.
func (r *Registry) Install(ctx context.Context, inst *vm.Instrumentation) error {
	ctx, span := tracer.Start(ctx, "Install")
	defer span.End()
	log := observability.WithTraceContext(ctx, r.log)
	span.SetAttributes(attribute.Int("mixy.bindings", len(r.bindings)))

	var errs []error
	registered := 0
	for _, b := range r.bindings {
		if inst.IsLoaded(b.TargetClassName) {
			log.Warnf("Class %s is already loaded; interceptor %s is not guaranteed to take effect", b.TargetClassName, b)
			r.record("skipped")
			continue
		}

		if err := r.engine.RegisterIntercept(b); err != nil {
			log.WithError(err).Errorf("Failed to register interceptor %s", b)
			r.record("failed")
			errs = append(errs, err)
			continue
		}
		r.record("registered")
		registered++
	}

	if err := r.engine.InstallOn(inst); err != nil {
		if errors.Is(err, ErrTargetLoaded) {
			log.WithError(err).Warn("Some interceptors target classes that are already loaded")
		} else {
			log.WithError(err).Error("Failed to install interceptors")
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to install interceptors: %w", err)
	}

	log.Infof("Registered %d of %d interceptor binding(s) with the engine", registered, len(r.bindings))
	return nil
}

func (r *Registry) record(status string) {
	if r.metrics != nil {
		r.metrics.BindingsInstalledTotal.WithLabelValues(status).Inc()
	}
}
