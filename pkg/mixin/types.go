package mixin

import "fmt"

// Annotation marks a descriptor method as an interceptor
type Annotation string

const (
	// OnMethodEnter runs the interceptor before the target method body
	OnMethodEnter Annotation = "OnMethodEnter"
	// OnMethodExit runs the interceptor after the target method body
	OnMethodExit Annotation = "OnMethodExit"
)

// Advice is where an interceptor runs relative to the original method
type Advice string

const (
	AdviceEnter Advice = "enter"
	AdviceExit  Advice = "exit"
)

// AdviceFor maps an annotation to its advice kind
func AdviceFor(a Annotation) (Advice, bool) {
	switch a {
	case OnMethodEnter:
		return AdviceEnter, true
	case OnMethodExit:
		return AdviceExit, true
	default:
		return "", false
	}
}

// Declaration is a mixin class found while scanning an archive
type Declaration struct {
	TargetClassName      string // Class the mixin augments
	InterceptorClassName string // The mixin class itself
	DefiningArchive      string // Archive the mixin class came from
}

// Binding splices one interceptor method into one target method
type Binding struct {
	TargetClassName       string `json:"target_class" yaml:"target_class"`
	TargetMethodName      string `json:"target_method" yaml:"target_method"`
	InterceptorClassName  string `json:"interceptor_class" yaml:"interceptor_class"`
	InterceptorMethodName string `json:"interceptor_method" yaml:"interceptor_method"`
	Advice                Advice `json:"advice" yaml:"advice"`
}

// Target identifies the intercepted method as class#method
func (b Binding) Target() string {
	return b.TargetClassName + "#" + b.TargetMethodName
}

func (b Binding) String() string {
	return fmt.Sprintf("%s <- %s#%s (%s)", b.Target(), b.InterceptorClassName, b.InterceptorMethodName, b.Advice)
}

// Result holds everything a scan extracted from one archive
type Result struct {
	Archive      string
	Classes      int // Class entries found
	Skipped      int // Class entries that failed to resolve
	Declarations []Declaration
	Bindings     []Binding
}
