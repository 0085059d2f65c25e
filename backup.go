package litrun

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// BackupManager moves an existing workspace aside before it is reset
type BackupManager struct {
	now func() time.Time
}

func NewBackupManager() *BackupManager {
	return &BackupManager{
		now: time.Now,
	}
}

// CreateBackupOf renames path to a timestamped sibling if it exists
//
// Returns the path to the backup, or an empty string if nothing was backed up
func (bm *BackupManager) CreateBackupOf(path string) (backupPath string, err error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("checking path existence: %w", err)
	}

	backupPath = fmt.Sprintf("%s.%s.bak", path, bm.now().Format("20060102_150405"))
	if _, err := os.Stat(backupPath); err == nil {
		return "", fmt.Errorf("backup %s already exists", backupPath)
	}

	if err := os.Rename(path, backupPath); err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}

	slog.Info("workspace already existed. Created a backup.", "backup", backupPath, "workspace", path)
	return backupPath, nil
}
