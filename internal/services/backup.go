package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"
)

// BackupManager copies the durable data files into a timestamped snapshot
// directory. Sources that do not exist are skipped; any other I/O failure
// aborts the whole cycle.
type BackupManager struct {
	dir     string
	sources []string
}

// NewBackupManager takes the snapshot root and the files to snapshot
// (content database, sync-state file, legacy flat-file content, public
// entry page).
func NewBackupManager(dir string, sources ...string) *BackupManager {
	return &BackupManager{dir: dir, sources: sources}
}

// CreateBackup writes one snapshot directory named after the given instant
// and returns its path. The timestamp format avoids characters that are
// unsafe in file names.
func (b *BackupManager) CreateBackup(now time.Time) (string, error) {
	stamp := now.Format("2006-01-02T15-04-05")
	dir := filepath.Join(b.dir, "backup_"+stamp)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	for _, src := range b.sources {
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			// Optional files (legacy content, index page) may be absent
			continue
		} else if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", src, err)
		}

		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return "", fmt.Errorf("failed to copy %s: %w", src, err)
		}
		log.Printf("backup: copied %s", filepath.Base(src))
	}

	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
