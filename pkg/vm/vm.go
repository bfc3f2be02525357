// Package vm hosts the Lua state shared by every archive of a run.
//
// Classes are Lua tables produced by executing class units. The VM owns the
// table of materialized classes and runs registered transformers on each class
// before publishing it, which is the hook interception engines use to splice
// advice into methods before any caller can observe them.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrClosed is returned by operations on a closed VM
	ErrClosed = errors.New("vm is closed")
	// ErrResolverAttached is returned when a second namespace tries to attach
	ErrResolverAttached = errors.New("a namespace is already attached to this vm")
	// ErrNoResolver is returned when a class is imported before any namespace exists
	ErrNoResolver = errors.New("no namespace attached")
	// ErrNotAClass is returned when a class unit does not evaluate to a table
	ErrNotAClass = errors.New("class unit did not return a table")
	// ErrAlreadyDefined is returned when a class name is defined twice
	ErrAlreadyDefined = errors.New("class already defined")
)

// Resolver materializes classes by fully-qualified name
type Resolver interface {
	Resolve(ctx context.Context, name string) (*Class, error)
}

// Transformer rewrites a class after its unit has executed and before it is published.
// ctx is the context the class was resolved under.
type Transformer interface {
	Transform(ctx context.Context, L *lua.LState, class *Class) error
}

// Class is a materialized class
type Class struct {
	Name    string      // Fully-qualified class name
	Archive string      // Path of the archive that defined the class
	Table   *lua.LTable // Class table returned by the unit
}

// Method returns a function-valued field of the class
func (c *Class) Method(name string) (*lua.LFunction, bool) {
	fn, ok := c.Table.RawGetString(name).(*lua.LFunction)
	return fn, ok
}

// Methods returns the names of all function-valued fields, sorted
func (c *Class) Methods() []string {
	var names []string
	c.Table.ForEach(func(key, value lua.LValue) {
		if key.Type() != lua.LTString || value.Type() != lua.LTFunction {
			return
		}
		names = append(names, key.String())
	})
	sort.Strings(names)
	return names
}

// VM wraps a single Lua state and its class table
type VM struct {
	state        *lua.LState
	log          logrus.FieldLogger
	stdout       io.Writer
	classes      map[string]*Class
	order        []string
	transformers []Transformer
	resolver     Resolver
	inst         *Instrumentation
	closed       bool
}

// Option configures a VM
type Option func(*VM)

// WithStdout redirects the print builtin
func WithStdout(w io.Writer) Option {
	return func(v *VM) {
		v.stdout = w
	}
}

// WithLogger sets the logger used for VM diagnostics
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *VM) {
		v.log = log
	}
}

// New creates a VM with the standard Lua libraries plus the import builtin
func New(opts ...Option) *VM {
	v := &VM{
		state:   lua.NewState(),
		stdout:  os.Stdout,
		classes: make(map[string]*Class),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = logrus.New()
	}

	v.state.SetGlobal("import", v.state.NewFunction(v.luaImport))
	v.state.SetGlobal("print", v.state.NewFunction(v.luaPrint))

	return v
}

// State returns the underlying Lua state
func (v *VM) State() *lua.LState {
	return v.state
}

// Attach binds the namespace that resolves imports. Only one may ever be attached.
func (v *VM) Attach(r Resolver) error {
	if v.closed {
		return ErrClosed
	}
	if v.resolver != nil {
		return ErrResolverAttached
	}
	v.resolver = r
	return nil
}

// Instrumentation returns the handle interception engines install through
func (v *VM) Instrumentation() (*Instrumentation, error) {
	if v.closed {
		return nil, ErrClosed
	}
	if v.inst == nil {
		v.inst = &Instrumentation{vm: v}
	}
	return v.inst, nil
}

// Lookup returns a class that has already been materialized
func (v *VM) Lookup(name string) (*Class, bool) {
	c, ok := v.classes[name]
	return c, ok
}

// Loaded returns materialized class names in definition order
func (v *VM) Loaded() []string {
	names := make([]string, len(v.order))
	copy(names, v.order)
	return names
}

// Define executes a compiled unit, runs transformers over the resulting class
// and publishes it. Transformer failures are logged and do not prevent the
// class from being defined.
func (v *VM) Define(ctx context.Context, name, archivePath string, unit *lua.LFunction) (*Class, error) {
	if v.closed {
		return nil, ErrClosed
	}
	if _, exists := v.classes[name]; exists {
		return nil, fmt.Errorf("%s: %w", name, ErrAlreadyDefined)
	}

	L := v.state
	L.Push(unit)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, fmt.Errorf("failed to execute unit %s: %w", name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s returned %s: %w", name, ret.Type(), ErrNotAClass)
	}

	class := &Class{Name: name, Archive: archivePath, Table: table}
	for _, t := range v.transformers {
		if err := t.Transform(ctx, L, class); err != nil {
			v.log.WithError(err).Warnf("Transformer failed for class %s", name)
		}
	}

	v.classes[name] = class
	v.order = append(v.order, name)
	v.log.Debugf("Defined class %s from %s", name, archivePath)

	return class, nil
}

// Call invokes fn with args in protected mode, discarding results. Imports
// performed by fn see ctx values such as the active span; cancellation of ctx
// does not interrupt the call.
func (v *VM) Call(ctx context.Context, fn *lua.LFunction, args ...lua.LValue) error {
	if v.closed {
		return ErrClosed
	}
	if v.state.Context() == nil {
		v.state.SetContext(context.WithoutCancel(ctx))
		defer v.state.RemoveContext()
	}
	return v.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
}

// Close releases the Lua state
func (v *VM) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.state.Close()
}

func (v *VM) luaImport(L *lua.LState) int {
	name := L.CheckString(1)
	if v.resolver == nil {
		L.RaiseError("import %s: %s", name, ErrNoResolver)
		return 0
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	class, err := v.resolver.Resolve(ctx, name)
	if err != nil {
		L.RaiseError("import %s: %s", name, err)
		return 0
	}

	L.Push(class.Table)
	return 1
}

func (v *VM) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(v.stdout, strings.Join(parts, "\t"))
	return 0
}
