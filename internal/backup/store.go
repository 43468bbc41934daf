package backup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ArchiveFilename is the name every daily archive is stored under
// inside its dated directory.
const ArchiveFilename = "minecraft-server-backup.zip"

const dayLayout = "2006-01-02"

// ErrArchiveExists is returned when a daily archive is already present.
var ErrArchiveExists = errors.New("backup archive already exists")

// DailyStore keeps one backup archive per calendar day under
// baseDir/YYYY-MM-DD/ and prunes directories older than the retention
// window.
type DailyStore struct {
	baseDir       string
	retentionDays int
	logger        *slog.Logger

	now func() time.Time
}

// NewDailyStore creates a store rooted at baseDir.
func NewDailyStore(baseDir string, retentionDays int, logger *slog.Logger) *DailyStore {
	if retentionDays <= 0 {
		retentionDays = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyStore{
		baseDir:       baseDir,
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}
}

// EnsureDaily creates today's backup of serverRoot if it does not
// exist yet and prunes expired days. It reports whether a new archive
// was created.
func (s *DailyStore) EnsureDaily(serverRoot string) (bool, error) {
	day := s.now()
	dir := filepath.Join(s.baseDir, day.Format(dayLayout))

	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("backup path exists but is not a directory: %s", dir)
		}
		return false, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create backup directory: %w", err)
	}

	archive, err := CreateZip(serverRoot)
	if err != nil {
		os.Remove(dir)
		return false, err
	}

	if err := s.store(archive, dir); err != nil {
		os.Remove(archive)
		return false, err
	}

	if removed := s.Prune(day); len(removed) > 0 {
		s.logger.Info("pruned expired backups", "removed", removed)
	}

	s.logger.Info("daily backup created", "dir", dir)
	return true, nil
}

// store moves the archive into the dated directory. Rename first;
// copy across filesystems as the fallback.
func (s *DailyStore) store(archive, dir string) error {
	dst := filepath.Join(dir, ArchiveFilename)
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrArchiveExists, dst)
	}

	if err := os.Rename(archive, dst); err == nil {
		return nil
	}

	data, err := os.ReadFile(archive)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("store archive: %w", err)
	}
	return os.Remove(archive)
}

// Prune removes dated directories older than the retention window and
// returns their names. Directories that do not parse as dates are left
// alone.
func (s *DailyStore) Prune(reference time.Time) []string {
	keepFrom := reference.AddDate(0, 0, -(s.retentionDays - 1)).Format(dayLayout)

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(dayLayout, e.Name()); err != nil {
			continue
		}
		if e.Name() >= keepFrom {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.baseDir, e.Name())); err != nil {
			s.logger.Warn("failed to prune backup directory", "dir", e.Name(), "err", err)
			continue
		}
		removed = append(removed, e.Name())
	}
	return removed
}
