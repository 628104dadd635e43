package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestSearch_FindPDFs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string][]byte{
		"b.pdf":            make([]byte, 10),
		"a.PDF":            make([]byte, 20),
		"notes.txt":        []byte("not a pdf"),
		"fall/c.pdf":       make([]byte, 30),
		"fall/deep/d.pdf":  make([]byte, 40),
		"fall/readme.md":   []byte("#"),
		"spring/empty.pdf": {},
	})

	flat, err := NewSearch(false).FindPDFs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PDF", "b.pdf"}, names(flat))
	assert.Equal(t, int64(20), flat[0].Size)
	assert.True(t, filepath.IsAbs(flat[0].Path))

	deep, err := NewSearch(true).FindPDFs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PDF", "b.pdf", "c.pdf", "d.pdf", "empty.pdf"}, names(deep))
}

func TestSearch_Errors(t *testing.T) {
	s := NewSearch(true)

	_, err := s.FindPDFs("")
	assert.Error(t, err)

	_, err = s.FindPDFs(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "does not exist")

	file := filepath.Join(t.TempDir(), "x.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = s.FindPDFs(file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestSearch_EmptyDirectory(t *testing.T) {
	files, err := NewSearch(true).FindPDFs(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
