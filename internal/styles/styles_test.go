package styles

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rule = "extends: existence\nmessage: \"Avoid 'foo'.\"\nlevel: warning\ntokens:\n  - foo\n"

func TestMaterialize_NilIsNoop(t *testing.T) {
	dst := t.TempDir()
	require.NoError(t, Materialize(dst, nil))

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTree_WritesStringAndBytes(t *testing.T) {
	dst := t.TempDir()
	tree := Tree{
		"Test/NoFoo.yml": rule,
		"Test/NoBar.yml": []byte(rule),
	}
	require.NoError(t, Materialize(dst, tree))

	// String and []byte content produce byte-identical files.
	fromString, err := os.ReadFile(filepath.Join(dst, "Test", "NoFoo.yml"))
	require.NoError(t, err)
	fromBytes, err := os.ReadFile(filepath.Join(dst, "Test", "NoBar.yml"))
	require.NoError(t, err)
	assert.Equal(t, []byte(rule), fromString)
	assert.Equal(t, fromString, fromBytes)
}

func TestTree_CreatesNestedParents(t *testing.T) {
	dst := t.TempDir()
	require.NoError(t, Materialize(dst, Tree{"a/b/c/rule.yml": "x"}))

	data, err := os.ReadFile(filepath.Join(dst, "a", "b", "c", "rule.yml"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestTree_RejectsUnsupportedContent(t *testing.T) {
	err := Materialize(t.TempDir(), Tree{"Test/NoFoo.yml": 42})
	require.Error(t, err)

	var typeErr *ContentTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "Test/NoFoo.yml", typeErr.Path)
	assert.Contains(t, typeErr.Error(), "int")
}

func TestDir_CopiesRecursively(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Test"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Test", "NoFoo.yml"), []byte(rule), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README.md"), []byte("readme"), 0o644))

	dst := t.TempDir()
	require.NoError(t, Materialize(dst, Dir(src)))

	copied, err := os.ReadFile(filepath.Join(dst, "Test", "NoFoo.yml"))
	require.NoError(t, err)
	assert.Equal(t, rule, string(copied))

	readme, err := os.ReadFile(filepath.Join(dst, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(readme))
}

func TestDir_MergesIntoExistingSubdirectories(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Test"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Test", "New.yml"), []byte("new"), 0o644))

	dst := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "Test"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dst, "Test", "Existing.yml"), []byte("old"), 0o644))

	require.NoError(t, Materialize(dst, Dir(src)))

	// Existing entries survive the merge.
	existing, err := os.ReadFile(filepath.Join(dst, "Test", "Existing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(existing))

	merged, err := os.ReadFile(filepath.Join(dst, "Test", "New.yml"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(merged))
}

func TestDir_PreservesFileMode(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "script.sh"), []byte("#!/bin/sh\n"), 0o755))

	dst := t.TempDir()
	require.NoError(t, Materialize(dst, Dir(src)))

	info, err := os.Stat(filepath.Join(dst, "script.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestDir_Missing(t *testing.T) {
	err := Materialize(t.TempDir(), Dir("/nonexistent/styles"))
	require.Error(t, err)

	var missing *TreeMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "/nonexistent/styles", missing.Path)
}

func TestDir_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := Materialize(t.TempDir(), Dir(file))
	require.Error(t, err)

	var typeErr *TreeTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, file, typeErr.Path)
}
