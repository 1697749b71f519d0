package cache

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extract unpacks a zip archive into destDir, preserving file modes so
// extracted binaries stay executable. Entries escaping destDir are
// rejected.
func (c *Cache) extract(archive, destDir string) error {
	file, err := c.fs.Open(archive)
	if err != nil {
		return fmt.Errorf("%w: failed to open archive %s: %v", ErrExtraction, archive, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: failed to stat archive %s: %v", ErrExtraction, archive, err)
	}

	reader, err := zip.NewReader(file, info.Size())
	if err != nil {
		return fmt.Errorf("%w: %s is not a valid zip archive: %v", ErrExtraction, archive, err)
	}

	for _, entry := range reader.File {
		if err := c.extractOne(entry, destDir); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) extractOne(entry *zip.File, destDir string) error {
	name := filepath.FromSlash(entry.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: archive entry %q escapes the target directory", ErrExtraction, entry.Name)
	}
	target := filepath.Join(destDir, name)

	if entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/") {
		if err := c.fs.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("%w: failed to create dir %s: %v", ErrExtraction, target, err)
		}
		return nil
	}

	if err := c.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create dir for %s: %v", ErrExtraction, target, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: failed to read archive entry %s: %v", ErrExtraction, entry.Name, err)
	}
	defer src.Close()

	mode := entry.Mode() & os.ModePerm
	if mode == 0 {
		mode = 0o644
	}
	dst, err := c.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", ErrExtraction, target, err)
	}

	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrExtraction, target, err)
	}

	// MemMapFs ignores the OpenFile mode; set it explicitly so the
	// driver binary is executable on every backing filesystem.
	if err := c.fs.Chmod(target, mode); err != nil {
		return fmt.Errorf("%w: failed to chmod %s: %v", ErrExtraction, target, err)
	}
	return nil
}
