package intake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile_TextPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("page one\fpage two\f"), 0644))

	r := NewReader("", 0)
	pages, err := r.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, pages)
}

func TestReadFile_SinglePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("only page"), 0644))

	r := NewReader("", 0)
	pages, err := r.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"only page"}, pages)
}

func TestReadFile_UnsupportedType(t *testing.T) {
	r := NewReader("", 0)
	_, err := r.ReadFile(context.Background(), "doc.docx")
	assert.Error(t, err)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	r := NewReader("", 0)
	docs, err := r.ReadDir(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Source)
	assert.Equal(t, []string{"first"}, docs[0].Pages)
	assert.Equal(t, "b.txt", docs[1].Source)
}

func TestReadDir_Missing(t *testing.T) {
	r := NewReader("", 0)
	_, err := r.ReadDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitPages("a\fb"))
	assert.Equal(t, []string{"a", "b"}, splitPages("a\fb\f"))
	assert.Equal(t, []string{"a"}, splitPages("a\f\f  \f"))
	assert.Equal(t, []string{""}, splitPages(""))
}
