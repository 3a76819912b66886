package qrcode

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderAndRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qrcodes")
	r, err := NewRenderer(dir, WithSize(128))
	require.NoError(t, err)

	public, err := r.Render(Key("ABCDE"), "eyJ0YWJsZV9jb2RlIjoiQUJDREUifQ")
	require.NoError(t, err)
	assert.Equal(t, "/qrcodes/table-ABCDE.png", public)

	raw, err := os.ReadFile(filepath.Join(dir, "table-ABCDE.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, pngMagic))

	require.NoError(t, r.Release(Key("ABCDE")))
	_, err = os.Stat(filepath.Join(dir, "table-ABCDE.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, r.Release(Key("ABCDE")), "releasing a missing image is not an error")
}

func TestRenderOverwrites(t *testing.T) {
	r, err := NewRenderer(t.TempDir())
	require.NoError(t, err)

	_, err = r.Render(Key("QR001"), "first")
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(r.Dir(), "table-QR001.png"))
	require.NoError(t, err)

	_, err = r.Render(Key("QR001"), "second-token-value")
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(r.Dir(), "table-QR001.png"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestInvalidKey(t *testing.T) {
	r, err := NewRenderer(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc", "a/b", `a\b`} {
		_, err := r.Render(key, "x")
		assert.Error(t, err, key)
		assert.Error(t, r.Release(key), key)
	}
}
