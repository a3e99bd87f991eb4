package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// uploadsRoot is the base directory for stored files. Overridable for tests.
var uploadsRoot = "uploads"

func writeUploadFile(subdir, name string, r io.Reader) (string, error) {
	dir := filepath.Join(uploadsRoot, subdir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return filepath.Join(subdir, name), nil
}
