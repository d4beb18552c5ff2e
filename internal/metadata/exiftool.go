package metadata

import (
	"log/slog"

	"github.com/barasher/go-exiftool"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/logging"
)

// ExifTool implements Reader and Writer on top of a long-lived exiftool
// process. Starting exiftool is the dominant cost, so one instance is shared
// across the run and reads are batched per folder.
type ExifTool struct {
	et  *exiftool.Exiftool
	log *slog.Logger
}

var (
	_ Reader = (*ExifTool)(nil)
	_ Writer = (*ExifTool)(nil)
)

// NewExifTool starts an exiftool instance. The caller must Close it.
func NewExifTool() (*ExifTool, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, errors.Newf("failed to start exiftool: %w", err).
			Category(errors.CategoryMetadata).
			Build()
	}
	return &ExifTool{
		et:  et,
		log: logging.ForService("metadata"),
	}, nil
}

// Close terminates the exiftool process.
func (x *ExifTool) Close() error {
	return x.et.Close()
}

// ReadTags extracts metadata for a batch of files. Unreadable files are
// logged and left out of the result rather than failing the batch.
func (x *ExifTool) ReadTags(paths []string) (map[string]Tags, error) {
	result := make(map[string]Tags, len(paths))
	if len(paths) == 0 {
		return result, nil
	}

	for _, fm := range x.et.ExtractMetadata(paths...) {
		if fm.Err != nil {
			x.log.Warn("unreadable file metadata", "file", fm.File, "error", fm.Err)
			continue
		}
		result[fm.File] = Tags(fm.Fields)
	}
	return result, nil
}

// WriteTag writes a single string tag into a file's metadata, overwriting
// the original file in place.
func (x *ExifTool) WriteTag(path, name, value string) error {
	fm := exiftool.EmptyFileMetadata()
	fm.File = path
	fm.SetString(name, value)

	fms := []exiftool.FileMetadata{fm}
	x.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return errors.Newf("failed to write %s tag: %w", name, fms[0].Err).
			Category(errors.CategoryMetadata).
			FileContext(path).
			Build()
	}
	return nil
}
