package elfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"la32rstats/internal/elfx/elftest"
)

func TestMapFile(t *testing.T) {
	dir := t.TempDir()
	want := elftest.Builder{Sections: []elftest.Section{{Name: ".text", Data: elftest.Words(0x001018a4)}}}.Bytes()
	path := filepath.Join(dir, "a.elf")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	m, err := MapFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, m.Data)

	im, err := Parse(m.Data)
	require.NoError(t, err)
	secs, _ := im.CodeSections()
	assert.Len(t, secs, 1)

	require.NoError(t, m.Close())
	assert.Nil(t, m.Data)
	assert.NoError(t, m.Close(), "second Close is a no-op")
}

func TestMapFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	m, err := MapFile(path)
	require.NoError(t, err)
	defer m.Close()
	assert.Empty(t, m.Data)

	_, err = Parse(m.Data)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestMapFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := MapFile(dir)
	assert.Error(t, err)

	_, err = MapFile(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
