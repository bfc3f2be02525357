package intercept

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/platinummonkey/mixy/pkg/mixin"
	"github.com/platinummonkey/mixy/pkg/vm"
)

var (
	// ErrTargetLoaded is returned when a binding targets a class that is already materialized
	ErrTargetLoaded = errors.New("target class already loaded")
	// ErrInvalidBinding is returned for bindings with missing names or unknown advice
	ErrInvalidBinding = errors.New("invalid binding")
	// ErrMethodNotFound is returned when a target or interceptor method does not exist
	ErrMethodNotFound = errors.New("method not found")
)

// Engine splices interceptor calls into target methods. Bindings are
// registered first and take effect once installed on an instrumentation handle.
type Engine interface {
	RegisterIntercept(b mixin.Binding) error
	InstallOn(inst *vm.Instrumentation) error
}

// AdviceEngine wraps Lua methods at class definition time. The original body
// always runs; enter advice runs before it and exit advice after it, both
// receiving the call's arguments.
type AdviceEngine struct {
	log     logrus.FieldLogger
	pending []mixin.Binding
	applied []mixin.Binding
}

// NewAdviceEngine creates an advice engine
func NewAdviceEngine(log logrus.FieldLogger) *AdviceEngine {
	if log == nil {
		log = logrus.New()
	}
	return &AdviceEngine{log: log}
}

// RegisterIntercept queues a binding for the next InstallOn
func (e *AdviceEngine) RegisterIntercept(b mixin.Binding) error {
	if b.TargetClassName == "" || b.TargetMethodName == "" ||
		b.InterceptorClassName == "" || b.InterceptorMethodName == "" {
		return fmt.Errorf("%w: %s", ErrInvalidBinding, b)
	}
	if b.Advice != mixin.AdviceEnter && b.Advice != mixin.AdviceExit {
		return fmt.Errorf("%w: unknown advice %q", ErrInvalidBinding, b.Advice)
	}

	e.pending = append(e.pending, b)
	return nil
}

// InstallOn adds one transformer covering every queued binding. Bindings
// whose target class is already materialized cannot take effect and are
// reported with ErrTargetLoaded; the rest are still installed.
func (e *AdviceEngine) InstallOn(inst *vm.Instrumentation) error {
	pending := e.pending
	e.pending = nil
	if len(pending) == 0 {
		return nil
	}

	var errs []error
	byClass := make(map[string][]mixin.Binding)
	for _, b := range pending {
		if inst.IsLoaded(b.TargetClassName) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrTargetLoaded, b))
			continue
		}
		byClass[b.TargetClassName] = append(byClass[b.TargetClassName], b)
	}

	if len(byClass) > 0 {
		inst.AddTransformer(&adviceTransformer{engine: e, inst: inst, bindings: byClass})
	}

	return errors.Join(errs...)
}

// Applied returns the bindings that have been spliced into a defined class
func (e *AdviceEngine) Applied() []mixin.Binding {
	applied := make([]mixin.Binding, len(e.applied))
	copy(applied, e.applied)
	return applied
}

type adviceTransformer struct {
	engine   *AdviceEngine
	inst     *vm.Instrumentation
	bindings map[string][]mixin.Binding
}

// Transform wraps in reverse registration order so the first registered
// binding ends up outermost.
func (t *adviceTransformer) Transform(ctx context.Context, L *lua.LState, class *vm.Class) error {
	bindings, ok := t.bindings[class.Name]
	if !ok {
		return nil
	}

	var errs []error
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if err := t.apply(ctx, L, class, b); err != nil {
			errs = append(errs, err)
			continue
		}
		t.engine.applied = append(t.engine.applied, b)
		t.engine.log.Debugf("Applied interceptor %s", b)
	}

	return errors.Join(errs...)
}

func (t *adviceTransformer) apply(ctx context.Context, L *lua.LState, class *vm.Class, b mixin.Binding) error {
	original, ok := class.Method(b.TargetMethodName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMethodNotFound, b.Target())
	}

	interceptorClass, err := t.inst.Resolve(ctx, b.InterceptorClassName)
	if err != nil {
		return fmt.Errorf("failed to resolve interceptor for %s: %w", b, err)
	}
	interceptor, ok := interceptorClass.Method(b.InterceptorMethodName)
	if !ok {
		return fmt.Errorf("%w: %s#%s", ErrMethodNotFound, b.InterceptorClassName, b.InterceptorMethodName)
	}

	class.Table.RawSetString(b.TargetMethodName, L.NewFunction(advise(original, interceptor, b.Advice)))
	return nil
}

func advise(original, interceptor *lua.LFunction, advice mixin.Advice) lua.LGFunction {
	return func(L *lua.LState) int {
		nargs := L.GetTop()
		args := make([]lua.LValue, nargs)
		for i := 0; i < nargs; i++ {
			args[i] = L.Get(i + 1)
		}

		call := func(fn *lua.LFunction, nret int) {
			L.Push(fn)
			for _, arg := range args {
				L.Push(arg)
			}
			L.Call(nargs, nret)
		}

		if advice == mixin.AdviceEnter {
			call(interceptor, 0)
		}

		base := L.GetTop()
		call(original, lua.MultRet)
		nret := L.GetTop() - base

		if advice == mixin.AdviceExit {
			call(interceptor, 0)
		}

		return nret
	}
}
