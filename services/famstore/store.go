package famstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"formfiller-backend/lib/textutil"
	"formfiller-backend/lib/timezone"
	"formfiller-backend/services/family"
)

// Store persists family records as JSON: a flat working set that the
// batch loop consumes, and a dated weekly-bucketed archive of
// completed records.
type Store struct {
	// WorkingPath is the autosave file holding the current working
	// set, e.g. autosave_families.json.
	WorkingPath string
	// CompletedDir is the root of the completed archive,
	// layout: <CompletedDir>/<YYYY-Www>/<DD.MM.YYYY>_completed_families.json
	CompletedDir string
}

func NewStore(workingPath, completedDir string) Store {
	return Store{WorkingPath: workingPath, CompletedDir: completedDir}
}

// LoadWorking reads the working set. A missing file is an empty set,
// not an error.
func (s Store) LoadWorking() ([]family.Record, error) {
	data, err := os.ReadFile(s.WorkingPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []family.Record
	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.WorkingPath, err)
	}
	return records, nil
}

// SaveWorking writes the working set atomically.
func (s Store) SaveWorking(records []family.Record) error {
	if records == nil {
		records = []family.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.WorkingPath, data)
}

// ArchivePath returns the archive file for a given day.
func (s Store) ArchivePath(now time.Time) string {
	return filepath.Join(
		s.CompletedDir,
		timezone.WeekBucket(now),
		fmt.Sprintf("%s_completed_families.json", now.Format("02.01.2006")),
	)
}

// Archive appends records to the day's completed file and removes
// their keys from the working set. Returns the archive path.
func (s Store) Archive(records []family.Record, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	path := s.ArchivePath(now)
	existing, err := s.LoadArchive(path)
	if err != nil {
		return "", err
	}
	existing = append(existing, records...)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return "", err
	}
	err = atomicWrite(path, data)
	if err != nil {
		return "", err
	}

	keys := make([]string, len(records))
	for i := range records {
		keys[i] = records[i].Key()
	}
	err = s.RemoveFromWorking(keys)
	if err != nil {
		return "", err
	}
	return path, nil
}

// LoadArchive reads one archive file. Missing files are empty.
func (s Store) LoadArchive(path string) ([]family.Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []family.Record
	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// RemoveFromWorking deletes working-set entries whose normalized name
// matches any of the given keys.
func (s Store) RemoveFromWorking(keys []string) error {
	records, err := s.LoadWorking()
	if err != nil {
		return err
	}

	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[textutil.NormalizeName(k)] = true
	}

	kept := records[:0]
	for _, r := range records {
		if drop[r.Key()] {
			continue
		}
		kept = append(kept, r)
	}
	return s.SaveWorking(kept)
}

// ScreenshotName builds the PNG file name for a processed record:
// <3-digit-index>_<sanitized-mother-name>.png
func ScreenshotName(index int, motherName string) string {
	return fmt.Sprintf("%03d_%s.png", index, textutil.SanitizeFilename(motherName))
}

func atomicWrite(path string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	err = os.WriteFile(tmp, data, 0o644)
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
