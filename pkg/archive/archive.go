package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// ClassSuffix marks an entry as a class unit
	ClassSuffix = ".lua"
	// ManifestName is the manifest entry at the archive root
	ManifestName = "manifest.yaml"
	// DescriptorName is the mixin descriptor entry at the archive root
	DescriptorName = "mixin.yaml"
)

// ErrEntryNotFound is returned when an archive has no entry with the requested name
var ErrEntryNotFound = errors.New("entry not found")

// Archive is a package file contributed to a namespace
type Archive struct {
	Path   string // Absolute path to the archive file
	Loaded bool   // Set once the archive has been added to a namespace
}

// String returns the archive path
func (a *Archive) String() string {
	return a.Path
}

// ClassName derives the fully-qualified class name for an entry.
// It returns false for entries that are not class units.
func ClassName(entry string) (string, bool) {
	if strings.HasSuffix(entry, "/") || !strings.HasSuffix(entry, ClassSuffix) {
		return "", false
	}

	name := strings.TrimSuffix(entry, ClassSuffix)
	name = strings.ReplaceAll(name, "/", ".")
	name = strings.ReplaceAll(name, "\\", ".")
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return "", false
	}

	return name, true
}

// EntryName returns the entry path holding a class
func EntryName(className string) string {
	return strings.ReplaceAll(className, ".", "/") + ClassSuffix
}

// Reader gives read access to the entries of an archive
type Reader struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File
	order []string
}

// Open opens an archive for reading
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	r := &Reader{
		path:  path,
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
		order: make([]string, 0, len(zr.File)),
	}
	for _, f := range zr.File {
		// First occurrence wins, matching lookups through the namespace
		if _, exists := r.files[f.Name]; exists {
			continue
		}
		r.files[f.Name] = f
		r.order = append(r.order, f.Name)
	}

	return r, nil
}

// Path returns the path the reader was opened from
func (r *Reader) Path() string {
	return r.path
}

// Entries returns entry names in archive order
func (r *Reader) Entries() []string {
	entries := make([]string, len(r.order))
	copy(entries, r.order)
	return entries
}

// Has reports whether the archive contains an entry
func (r *Reader) Has(name string) bool {
	_, ok := r.files[name]
	return ok
}

// ReadFile returns the contents of an entry
func (r *Reader) ReadFile(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", name, r.path, ErrEntryNotFound)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
	}

	return data, nil
}

// Close releases the underlying file
func (r *Reader) Close() error {
	return r.zr.Close()
}

// File is a single entry written by Create
type File struct {
	Name string
	Body string
}

// Create writes an archive containing files in the given order
func Create(path string, files ...File) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			zw.Close()
			out.Close()
			return fmt.Errorf("failed to add entry %s: %w", f.Name, err)
		}
		if _, err := io.WriteString(w, f.Body); err != nil {
			zw.Close()
			out.Close()
			return fmt.Errorf("failed to write entry %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	return out.Close()
}

// Pack writes every regular file under srcDir into an archive at dst.
// Entries are added in lexical path order so packing is reproducible.
// A non-nil manifest replaces any manifest.yaml found in srcDir.
func Pack(dst, srcDir string, manifest *Manifest) error {
	var files []File

	err := filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if manifest != nil && name == ManifestName {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, File{Name: name, Body: string(data)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to collect files from %s: %w", srcDir, err)
	}

	if manifest != nil {
		data, err := MarshalManifest(manifest)
		if err != nil {
			return err
		}
		files = append(files, File{Name: ManifestName, Body: string(data)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return Create(dst, files...)
}
