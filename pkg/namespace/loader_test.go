package namespace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/mixy/pkg/archive"
	"github.com/platinummonkey/mixy/pkg/vm"
)

func TestNewLoader(t *testing.T) {
	v := vm.New()
	defer v.Close()

	loader := NewLoader(v, nil)

	assert.NotNil(t, loader)
	assert.NotNil(t, loader.log)
	assert.Nil(t, loader.Namespace(), "namespace is created lazily")
}

func TestLoader_CreatesNamespaceOnce(t *testing.T) {
	dir := t.TempDir()
	a := writeArchive(t, dir, "a.jar", archive.File{Name: "a/A.lua", Body: `return {}`})
	b := writeArchive(t, dir, "b.jar", archive.File{Name: "b/B.lua", Body: `return {}`})

	v := vm.New()
	defer v.Close()
	loader := NewLoader(v, logrus.New())
	ctx := context.Background()

	loaded, err := loader.Load(ctx, a)
	require.NoError(t, err)
	assert.True(t, loaded.Loaded)

	ns := loader.Namespace()
	require.NotNil(t, ns)

	_, err = loader.Load(ctx, b)
	require.NoError(t, err)
	assert.Same(t, ns, loader.Namespace())

	var paths []string
	for _, arc := range ns.Archives() {
		paths = append(paths, arc.Path)
	}
	assert.Equal(t, []string{a, b}, paths)
}

func TestLoader_SameArchiveTwice(t *testing.T) {
	dir := t.TempDir()
	a := writeArchive(t, dir, "a.jar", archive.File{Name: "a/A.lua", Body: `return {}`})

	v := vm.New()
	defer v.Close()
	loader := NewLoader(v, logrus.New())
	ctx := context.Background()

	_, err := loader.Load(ctx, a)
	require.NoError(t, err)
	_, err = loader.Load(ctx, a)
	require.NoError(t, err)

	assert.Len(t, loader.Namespace().Archives(), 2)

	_, err = loader.Namespace().Resolve(ctx, "a.A")
	assert.NoError(t, err)
}

func TestLoader_InvalidPathLeavesNoNamespace(t *testing.T) {
	v := vm.New()
	defer v.Close()
	loader := NewLoader(v, logrus.New())

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.jar"))
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.Nil(t, loader.Namespace())
}
