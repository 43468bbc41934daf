package backup

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Errors surfaced by archive creation.
var (
	ErrSourceNotFound = errors.New("source path does not exist")
	ErrSourceNotDir   = errors.New("source path is not a directory")
)

// CreateZip compresses the source directory into a temporary ZIP file
// and returns its path. The caller owns the file and must remove it.
func CreateZip(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrSourceNotDir, source)
	}

	tmp, err := os.CreateTemp("", "craftwatch-backup-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w", err)
	}

	if err := writeZip(tmp, source); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close archive: %w", err)
	}

	return tmp.Name(), nil
}

func writeZip(w io.Writer, source string) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Live session locks are unreadable while the server runs and
		// worthless in a backup.
		if d.Name() == "session.lock" {
			return nil
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate

		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archive %s: %w", source, err)
	}

	return zw.Close()
}
