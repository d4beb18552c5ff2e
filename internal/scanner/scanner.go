// Package scanner classifies the contents of camera trap source folders into
// image files and other files.
package scanner

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/logging"
)

// ErrDirectoryNotFound indicates a source path that is missing or not a
// directory.
var ErrDirectoryNotFound = errors.NewStd("directory not found or not a directory")

// imageExts is the allow-list of image file extensions, matched case
// insensitively. Camera traps produce JPEGs; the remainder cover manually
// curated deployments.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether a file name has an allowed image extension.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Result holds the classified contents of one folder.
type Result struct {
	Dir    string
	Images []string // full paths, sorted by file name
	Others []string // non-image file names, sorted
}

// Scan lists the direct children of dir and classifies them. Nested
// directories are ignored: deployments are flat, with CALIB handled by the
// caller.
func Scan(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.Newf("%w: %s", ErrDirectoryNotFound, dir).
			Category(errors.CategoryNotFound).
			Context("dir", dir).
			Build()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Newf("failed to read directory %s: %w", dir, err).
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}

	result := &Result{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if IsImage(name) {
			result.Images = append(result.Images, filepath.Join(dir, name))
		} else {
			result.Others = append(result.Others, name)
		}
	}
	sort.Strings(result.Images)
	sort.Strings(result.Others)
	return result, nil
}

// ReportOthers logs a bounded warning listing non-image files found during a
// scan. These files are excluded from consolidation but never dropped
// silently.
func (r *Result) ReportOthers(log *slog.Logger, limit int) {
	if len(r.Others) == 0 {
		return
	}
	if log == nil {
		log = logging.ForService("scanner")
	}
	listed := r.Others
	truncated := false
	if limit > 0 && len(listed) > limit {
		listed = listed[:limit]
		truncated = true
	}
	log.Warn("non-image files found, excluded from processing",
		"dir", r.Dir,
		"count", len(r.Others),
		"files", strings.Join(listed, ", "),
		"truncated", truncated)
}
