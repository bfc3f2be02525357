// Package archive reads and writes mixy archives.
//
// # Overview
//
// An archive is a zip file bundling class units and optional metadata:
//
//	manifest.yaml      primary archives: declares main-class
//	mixin.yaml         plugin archives: mixin and interceptor declarations
//	app/Main.lua       class app.Main
//	app/Target.lua     class app.Target
//
// A class unit is a Lua chunk returning a table. The entry path maps to the
// fully-qualified class name by replacing path separators with dots and
// stripping the ".lua" suffix, see ClassName and EntryName.
//
// # Usage Example
//
//	r, err := archive.Open("app.jar")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	for _, entry := range r.Entries() {
//		if name, ok := archive.ClassName(entry); ok {
//			fmt.Println(name)
//		}
//	}
package archive
