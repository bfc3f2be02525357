package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassName(t *testing.T) {
	tests := []struct {
		entry string
		want  string
		ok    bool
	}{
		{"com/x/Y.lua", "com.x.Y", true},
		{"Top.lua", "Top", true},
		{"com\\x\\Y.lua", "com.x.Y", true},
		{"com/x/", "", false},
		{"manifest.yaml", "", false},
		{"com/x/Y.lua.bak", "", false},
		{".lua", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			got, ok := ClassName(tt.entry)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassName_RoundTrip(t *testing.T) {
	name, ok := ClassName("com/x/Y.lua")
	require.True(t, ok)
	assert.Equal(t, "com.x.Y", name)
	assert.Equal(t, "com/x/Y.lua", EntryName(name))
}

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jar")
	err := Create(path,
		File{Name: "b/B.lua", Body: "return {}"},
		File{Name: "a/A.lua", Body: "return {x = 1}"},
	)
	require.NoError(t, err)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, path, r.Path())
	assert.Equal(t, []string{"b/B.lua", "a/A.lua"}, r.Entries())
	assert.True(t, r.Has("a/A.lua"))
	assert.False(t, r.Has("c/C.lua"))

	data, err := r.ReadFile("a/A.lua")
	require.NoError(t, err)
	assert.Equal(t, "return {x = 1}", string(data))

	_, err = r.ReadFile("missing.lua")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestOpen_NotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jar")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestPack(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "app"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "app", "Main.lua"), []byte("return {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "manifest.yaml"), []byte("main-class: old.Main\n"), 0644))

	dst := filepath.Join(t.TempDir(), "app.jar")
	err := Pack(dst, src, &Manifest{MainClass: "app.Main"})
	require.NoError(t, err)

	r, err := Open(dst)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"app/Main.lua", "manifest.yaml"}, r.Entries())

	manifest, err := r.ReadManifest()
	require.NoError(t, err)
	assert.Equal(t, "app.Main", manifest.MainClass)
}

func TestPack_KeepsExistingManifest(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "manifest.yaml"), []byte("main-class: app.Main\n"), 0644))

	dst := filepath.Join(t.TempDir(), "app.jar")
	require.NoError(t, Pack(dst, src, nil))

	manifest, err := LoadManifest(dst)
	require.NoError(t, err)
	assert.Equal(t, "app.Main", manifest.MainClass)
}
