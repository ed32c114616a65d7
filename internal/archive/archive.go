// Package archive moves processed XML files out of the intake directory.
//
// Successfully staged files go to the archive directory; failed files are
// quarantined in the error directory. Both directories are created on
// first use.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Archive moves filePath into archiveDir. A same-named file already in the
// archive is overwritten.
func Archive(filePath, archiveDir string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("archive source missing: %w", err)
	}
	if err := os.MkdirAll(archiveDir, 0o750); err != nil {
		return fmt.Errorf("failed to create archive dir %s: %w", archiveDir, err)
	}
	dest := filepath.Join(archiveDir, filepath.Base(filePath))
	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(os.Stderr, "Warning: %s already in archive, overwriting\n", filepath.Base(filePath))
	}
	return moveFile(filePath, dest)
}

// Quarantine moves filePath into errorDir. When a same-named file already
// exists there, a timestamped suffix keeps both.
func Quarantine(filePath, errorDir string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("quarantine source missing: %w", err)
	}
	if err := os.MkdirAll(errorDir, 0o750); err != nil {
		return fmt.Errorf("failed to create error dir %s: %w", errorDir, err)
	}
	base := filepath.Base(filePath)
	dest := filepath.Join(errorDir, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		stamp := time.Now().Format("20060102_150405")
		dest = filepath.Join(errorDir, fmt.Sprintf("%s_error_%s%s", name, stamp, ext))
	}
	return moveFile(filePath, dest)
}

// moveFile renames src to dest, falling back to copy+remove when the two
// paths are on different filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	// #nosec G304 - paths are operator-supplied
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	// #nosec G304 - paths are operator-supplied
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", dest, err)
	}
	return os.Remove(src)
}
