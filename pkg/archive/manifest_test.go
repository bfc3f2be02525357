package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`
main-class: app.Main
name: demo
version: 1.2.0
metadata:
  owner: platform
`)

	manifest, err := ParseManifest(data)
	require.NoError(t, err)

	assert.Equal(t, "app.Main", manifest.MainClass)
	assert.Equal(t, "demo", manifest.Name)
	assert.Equal(t, "1.2.0", manifest.Version)
	assert.Equal(t, "platform", manifest.Metadata["owner"])
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest([]byte("main-class: [unterminated"))
	assert.Error(t, err)
}

func TestValidateManifest(t *testing.T) {
	assert.NoError(t, ValidateManifest(&Manifest{MainClass: "app.Main"}))
	assert.ErrorIs(t, ValidateManifest(&Manifest{}), ErrNoMainClass)
	assert.Error(t, ValidateManifest(&Manifest{MainClass: "app..Main"}))
	assert.Error(t, ValidateManifest(&Manifest{MainClass: "app/Main"}))
}

func TestLoadManifest_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jar")
	require.NoError(t, Create(path, File{Name: "app/Main.lua", Body: "return {}"}))

	_, err := LoadManifest(path)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestIsValidClassName(t *testing.T) {
	assert.True(t, IsValidClassName("app.Main"))
	assert.True(t, IsValidClassName("Main"))
	assert.True(t, IsValidClassName("com.example_1.Hook"))
	assert.False(t, IsValidClassName(""))
	assert.False(t, IsValidClassName("1app.Main"))
	assert.False(t, IsValidClassName("app.Main."))
}
