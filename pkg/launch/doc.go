// Package launch runs a primary archive with interceptors from plugin archives.
//
// # Phases
//
// A Coordinator drives one launch through fixed phases:
//
//  1. Bootstrap creates the VM and its instrumentation handle.
//  2. LoadPrimary adds the primary archive to the namespace.
//  3. LoadMixins loads each plugin archive in the mixins directory, scans it
//     for mixin declarations and registers their bindings, then installs
//     every binding at once.
//  4. RunPrimary resolves the manifest's main-class and calls its main method.
//
// A failing phase stops the launch; the entry point never runs after an
// earlier failure. Plugin loading is fail-fast on the first archive that
// cannot be read, but bindings gathered before it are still installed.
//
// # Usage
//
//	coord := launch.New(logger, launch.WithMetrics(metrics))
//	defer coord.Close()
//
//	if err := coord.Run(ctx, cfg); err != nil {
//		os.Exit(1)
//	}
//
// # Watching
//
// Watcher logs changes to the mixins directory while the primary runs. It
// never reloads anything.
package launch
