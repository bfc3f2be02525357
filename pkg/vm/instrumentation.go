package vm

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Instrumentation is the handle an interception engine installs through.
// It can only observe classes that are defined after a transformer is added.
type Instrumentation struct {
	vm *VM
}

// AddTransformer registers t for every class defined from now on
func (i *Instrumentation) AddTransformer(t Transformer) {
	i.vm.transformers = append(i.vm.transformers, t)
}

// IsLoaded reports whether a class has already been materialized
func (i *Instrumentation) IsLoaded(name string) bool {
	_, ok := i.vm.classes[name]
	return ok
}

// Resolve materializes a class through the attached namespace
func (i *Instrumentation) Resolve(ctx context.Context, name string) (*Class, error) {
	if c, ok := i.vm.classes[name]; ok {
		return c, nil
	}
	if i.vm.resolver == nil {
		return nil, fmt.Errorf("resolve %s: %w", name, ErrNoResolver)
	}
	return i.vm.resolver.Resolve(ctx, name)
}

// State returns the Lua state transformers build functions in
func (i *Instrumentation) State() *lua.LState {
	return i.vm.state
}
