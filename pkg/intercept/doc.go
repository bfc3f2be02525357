// Package intercept collects interceptor bindings and splices them into
// target classes.
//
// A Registry keeps bindings in registration order and hands them to an
// Engine. The AdviceEngine installs a vm.Transformer, so a binding only takes
// effect for target classes materialized after installation. Several bindings
// on the same method chain: the first registered is outermost, so enter advice
// runs in registration order and exit advice in reverse.
package intercept
