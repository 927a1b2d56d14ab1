// Package styles materializes Vale style-rule trees into a sandbox.
//
// Styles arrive either as an in-memory mapping of relative path to rule
// content, or as an existing directory that is copied recursively into the
// destination. Rule content is opaque to the harness; files are written
// byte-for-byte.
package styles

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is a styles input: a Tree of in-memory files or a Dir to copy.
// A nil Source materializes nothing.
type Source interface {
	materialize(dst string) error
}

// Tree is an in-memory style tree: relative path to file content. Content
// must be a string or []byte; any other type fails with a
// *ContentTypeError. Parent directories are created as needed and every
// entry becomes exactly one file under the destination.
type Tree map[string]any

// Dir is an existing styles directory. Its immediate children are copied
// into the destination: subdirectories merge recursively into same-named
// destination subdirectories, files are copied preserving their mode.
type Dir string

// TreeMissingError is returned when a Dir source does not exist.
type TreeMissingError struct {
	Path string
}

// Error implements the error interface.
func (e *TreeMissingError) Error() string {
	return fmt.Sprintf("styles tree %s doesn't exist", e.Path)
}

// TreeTypeError is returned when a Dir source is not a directory.
type TreeTypeError struct {
	Path string
}

// Error implements the error interface.
func (e *TreeTypeError) Error() string {
	return fmt.Sprintf("styles tree %s must be a directory", e.Path)
}

// ContentTypeError is returned when a Tree entry holds unsupported content.
type ContentTypeError struct {
	Path    string
	Content any
}

// Error implements the error interface.
func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("style file %s: contents must be string or []byte, got %T", e.Path, e.Content)
}

// Materialize writes the styles source into dst. A nil src is a no-op.
func Materialize(dst string, src Source) error {
	if src == nil {
		return nil
	}
	return src.materialize(dst)
}

func (t Tree) materialize(dst string) error {
	for rel, content := range t {
		var data []byte
		switch c := content.(type) {
		case string:
			data = []byte(c)
		case []byte:
			data = c
		default:
			return &ContentTypeError{Path: rel, Content: content}
		}

		target := filepath.Join(dst, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create style directory: %w", err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("failed to write style file %s: %w", rel, err)
		}
	}
	return nil
}

func (d Dir) materialize(dst string) error {
	info, err := os.Stat(string(d))
	if err != nil {
		if os.IsNotExist(err) {
			return &TreeMissingError{Path: string(d)}
		}
		return fmt.Errorf("failed to stat styles tree: %w", err)
	}
	if !info.IsDir() {
		return &TreeTypeError{Path: string(d)}
	}

	entries, err := os.ReadDir(string(d))
	if err != nil {
		return fmt.Errorf("failed to read styles tree: %w", err)
	}
	for _, entry := range entries {
		src := filepath.Join(string(d), entry.Name())
		target := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(src, target); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(src, target); err != nil {
			return err
		}
	}
	return nil
}

// copyDir recursively merges src into dst, creating dst if needed.
func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(from, to); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(from, to); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single file, preserving its permission bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
