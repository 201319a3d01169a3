// Package snapshot archives per-event camera snapshots to local disk.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SubdirName is the folder created under the configured base directory.
const SubdirName = "attendance-snapshots"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename builds the archive filename for one event:
// "<YYYY-MM-DD>_<HH-MM-SS>_<eid>_<name>_<in|out>.jpg". Empty identity fields
// become "unknown"; anything outside [a-zA-Z0-9] is replaced with '_' and the
// name is lowercased.
func Filename(employeeID, name string, at time.Time, logout bool) string {
	kind := "in"
	if logout {
		kind = "out"
	}
	if employeeID == "" {
		employeeID = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	safeEID := unsafeChars.ReplaceAllString(employeeID, "_")
	safeName := strings.ToLower(unsafeChars.ReplaceAllString(name, "_"))
	return fmt.Sprintf("%s_%s_%s_%s_%s.jpg",
		at.Format("2006-01-02"), at.Format("15-04-05"), safeEID, safeName, kind)
}

// Disk writes snapshots into <baseDir>/attendance-snapshots.
type Disk struct {
	dir string
}

// NewDisk creates the archive directory if needed.
func NewDisk(baseDir string) (*Disk, error) {
	dir := filepath.Join(baseDir, SubdirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create archive dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the archive directory.
func (d *Disk) Dir() string { return d.dir }

// Save writes the image bytes and returns the filename the record should
// reference. The context is accepted for interface symmetry; local writes
// are not cancellable mid-file.
func (d *Disk) Save(_ context.Context, data []byte, filename string) (string, error) {
	path := filepath.Join(d.dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: write %s: %w", filename, err)
	}
	return filepath.Base(filename), nil
}

// Load reads an archived snapshot back, used by the mirror worker.
func (d *Disk) Load(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", filename, err)
	}
	return data, nil
}
