package zipx

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractAllFlat(t *testing.T) {
	dir := t.TempDir()
	content := makeZip(t, map[string][]byte{
		"a.csv":        []byte("1;2;3"),
		"sub/b.csv":    []byte("4;5;6"),
		"README.txt":   []byte("hello"),
		"empty-ok.txt": {},
	})

	require.NoError(t, ExtractAll(content, dir))

	data, err := os.ReadFile(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1;2;3", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "sub", "b.csv"))
	require.NoError(t, err)
	assert.Equal(t, "4;5;6", string(data))
}

func TestExtractAllNested(t *testing.T) {
	dir := t.TempDir()
	inner := makeZip(t, map[string][]byte{"day1.csv": []byte("inner")})
	outer := makeZip(t, map[string][]byte{
		"bundle_20250101.zip": inner,
		"manifest.txt":        []byte("m"),
	})

	require.NoError(t, ExtractAll(outer, dir))

	// The nested zip expands into a directory named after it.
	data, err := os.ReadFile(filepath.Join(dir, "bundle_20250101", "day1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "inner", string(data))

	_, err = os.Stat(filepath.Join(dir, "manifest.txt"))
	assert.NoError(t, err)

	// The raw nested zip itself is not written out.
	_, err = os.Stat(filepath.Join(dir, "bundle_20250101.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractAllRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	content := makeZip(t, map[string][]byte{"../evil.txt": []byte("nope")})

	err := ExtractAll(content, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractAllRejectsAbsolute(t *testing.T) {
	dir := t.TempDir()
	content := makeZip(t, map[string][]byte{"/etc/evil.txt": []byte("nope")})
	assert.Error(t, ExtractAll(content, dir))
}

func TestExtractAllOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("old"), 0o644))

	content := makeZip(t, map[string][]byte{"a.csv": []byte("new")})
	require.NoError(t, ExtractAll(content, dir))

	data, err := os.ReadFile(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestExtractAllBadContent(t *testing.T) {
	assert.Error(t, ExtractAll([]byte("not a zip"), t.TempDir()))
}
