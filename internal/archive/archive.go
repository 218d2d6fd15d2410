package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// sidecar files SQLite may leave next to the database
var sidecars = []string{"-journal", "-wal", "-shm"}

// ArchiveDatabase moves the notebook database into an archive directory next
// to it, stamped with the current time. It returns the new path.
func ArchiveDatabase(dbPath string) (string, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database does not exist: %s", dbPath)
	}

	archiveDir := filepath.Join(filepath.Dir(dbPath), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	ext := filepath.Ext(dbPath)
	if ext == "" {
		ext = ".db"
	}

	archivePath := filepath.Join(archiveDir,
		fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102-150405"), ext))
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir,
			fmt.Sprintf("%s-%s%s", base, time.Now().Format("20060102-150405.000000"), ext))
	}

	if err := os.Rename(dbPath, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive database: %w", err)
	}

	for _, suffix := range sidecars {
		side := dbPath + suffix
		if _, err := os.Stat(side); err == nil {
			if err := os.Rename(side, archivePath+suffix); err != nil {
				return archivePath, fmt.Errorf("failed to archive %s: %w", filepath.Base(side), err)
			}
		}
	}

	return archivePath, nil
}
