// Package zipx extracts ESIOS archive bundles: ZIP files that often
// contain further ZIP files one per day, which are expanded in place
// into subdirectories.
package zipx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/colthorp/esios-cli-go/internal/core"
)

// ExtractAll expands ZIP content into dir, recursing into nested ZIP
// entries: an entry "foo.zip" is expanded into "dir/foo/". Existing
// files are overwritten with a warning. Entries whose names escape dir
// are rejected.
func ExtractAll(content []byte, dir string) error {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	log := core.Logger("zipx")

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if !entryNameSafe(name) {
			return fmt.Errorf("zip entry %q escapes extraction directory", name)
		}

		if strings.HasSuffix(strings.ToLower(name), ".zip") {
			nested, err := readEntry(f)
			if err != nil {
				return fmt.Errorf("read nested zip %q: %w", name, err)
			}
			nestedDir := filepath.Join(dir, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
			if err := ExtractAll(nested, nestedDir); err != nil {
				return fmt.Errorf("extract nested zip %q: %w", name, err)
			}
			continue
		}

		target := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(target); err == nil {
			log.Warn().Str("path", target).Msg("overwriting existing file")
		}
		if err := writeEntry(f, target); err != nil {
			return fmt.Errorf("extract %q: %w", name, err)
		}
	}
	return nil
}

// entryNameSafe rejects absolute paths and parent-directory traversal.
func entryNameSafe(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
