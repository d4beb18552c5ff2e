// Package metadata wraps the external metadata tool behind narrow Reader and
// Writer interfaces so the oracle can be substituted with a fake in tests.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Exif datetimes use colons in the date part.
const exifTimeLayout = "2006:01:02 15:04:05"

// Tag names used across the pipeline. Names are the short exiftool JSON keys,
// without group prefixes.
const (
	TagDateTimeOriginal = "DateTimeOriginal"
	TagCreateDate       = "CreateDate"
	TagSequence         = "Sequence"
	TagKeywords         = "Keywords"
	TagPreservedName    = "PreservedFileName"
)

// Tags is the tag name to value mapping for a single file. Values are
// heterogeneous: strings, numbers or string lists depending on the tag.
type Tags map[string]any

// Reader is the metadata oracle: a batch of paths in, per-file tag mappings
// out. A path that could not be read is absent from the result.
type Reader interface {
	ReadTags(paths []string) (map[string]Tags, error)
}

// Writer writes a single tag value into a file's metadata.
type Writer interface {
	WriteTag(path, name, value string) error
}

// GetString returns the named tag as a string, with ok reporting presence.
// Numeric values are formatted the way the metadata tool printed them.
func (t Tags) GetString(name string) (string, bool) {
	v, ok := t[name]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}

// GetStrings returns the named tag as a string slice. Single values come back
// as a one element slice; the metadata tool returns multi-valued tags such as
// Keywords as a list.
func (t Tags) GetStrings(name string) []string {
	v, ok := t[name]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		s, _ := t.GetString(name)
		return []string{s}
	}
}

// CaptureTime returns the capture timestamp from DateTimeOriginal, falling
// back to CreateDate. Corrupt or missing datetimes return ok=false.
func (t Tags) CaptureTime() (time.Time, bool) {
	for _, name := range []string{TagDateTimeOriginal, TagCreateDate} {
		raw, ok := t.GetString(name)
		if !ok {
			continue
		}
		ts, err := time.Parse(exifTimeLayout, strings.TrimSpace(raw))
		if err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// SequenceHint returns the burst position from the Sequence tag, which has an
// "n N" format (position n of a burst of N). Zero-valued or unparseable
// sequences return ok=false.
func (t Tags) SequenceHint() (int, bool) {
	raw, ok := t.GetString(TagSequence)
	if !ok {
		return 0, false
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
