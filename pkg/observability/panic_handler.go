package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with the stack trace.
//
// Usage in defer statements:
//
//	func riskyOperation() {
//	    defer observability.RecoverPanic(logger, "risky operation")
//	    // ... code that might panic
//	}
//
// The panic is not re-raised.
func RecoverPanic(logger logrus.FieldLogger, context string) {
	if r := recover(); r != nil {
		logPanic(logger, context, r)
	}
}

// RecoverToError recovers from a panic, logs it and stores it in *errp.
//
//	func run() (err error) {
//	    defer observability.RecoverToError(logger, "run", &err)
//	    // ... code that might panic
//	}
func RecoverToError(logger logrus.FieldLogger, context string, errp *error) {
	if r := recover(); r != nil {
		logPanic(logger, context, r)
		if errp != nil {
			*errp = MustRecover(r)
		}
	}
}

// MustRecover converts a recovered value to an error; nil stays nil
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}

func logPanic(logger logrus.FieldLogger, context string, r interface{}) {
	logger.WithField("panic", r).
		WithField("stack", string(debug.Stack())).
		WithField("context", context).
		Error("PANIC recovered")
}
