// Package mixin discovers mixin declarations in plugin archives.
//
// # Descriptor
//
// A plugin archive declares its mixins in mixin.yaml at the archive root:
//
//	mixins:
//	  - class: patch.Hook
//	    target: app.Target
//	    methods:
//	      - name: greet
//	        annotations: [OnMethodEnter]
//
// Each entry is a class-level marker: the class patch.Hook augments
// app.Target. Declared methods carrying an interceptor annotation become
// Bindings. Only OnMethodEnter and OnMethodExit mark interceptors; other
// annotations are reported and ignored.
//
// # Scanning
//
// Scanner.Scan enumerates every class entry of an archive in archive order,
// resolves it through the shared namespace and validates the descriptor
// against the resolved class. An archive that cannot be opened fails the scan;
// a class that cannot be resolved is skipped.
package mixin
