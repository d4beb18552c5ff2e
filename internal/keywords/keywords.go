// Package keywords parses the numerically coded keyword annotations embedded
// in camera trap image metadata.
//
// Keyword entries are free text of the form "code: value", where the code
// selects a semantic meaning from a fixed registry. Codes may carry a
// bracketed sub-number, for example "16(2)" for a second species on the same
// image; the sub-number distinguishes report columns, it never merges.
package keywords

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Registry codes with a fixed semantic meaning. The set of codes is
// externally defined; codes outside the registry are preserved rather than
// dropped.
const (
	CodeLocation  = 15
	CodeSpecies   = 16
	CodeCount     = 17
	CodeBehaviour = 18
	CodeObserver  = 24
	CodeNote      = 99
)

// registry is the static code to column name lookup.
var registry = map[int]string{
	CodeLocation:  "Location",
	CodeSpecies:   "Species",
	CodeCount:     "Count",
	CodeBehaviour: "Behaviour",
	CodeObserver:  "Observer",
	CodeNote:      "Note",
}

// Key identifies one keyword column: the registry code plus the optional
// bracketed sub-number. "16: x" and "16(2): y" are different keys.
type Key struct {
	Code int
	Sub  int // 0 when the entry carries no sub-number
}

// ColumnName returns the report column name for a keyword key. Unknown codes
// keep a numeric Tag_n name so nothing is silently lost; sub-numbered keys
// get a _n suffix.
func ColumnName(key Key) string {
	name, ok := registry[key.Code]
	if !ok {
		name = fmt.Sprintf("Tag_%d", key.Code)
	}
	if key.Sub > 0 {
		return fmt.Sprintf("%s_%d", name, key.Sub)
	}
	return name
}

// Tag is one parsed (key, value) keyword pair.
type Tag struct {
	Key   Key
	Value string
}

// ParseError records one malformed keyword entry.
type ParseError struct {
	Entry  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed keyword entry %q: %s", e.Entry, e.Reason)
}

// codePattern matches the code part of a keyword entry: a numeric code with
// an optional bracketed sub-number, e.g. "16" or "16(2)".
var codePattern = regexp.MustCompile(`^(\d+)(?:\((\d+)\))?$`)

// Parse converts raw keyword entries into Tags. Malformed entries, with a
// missing separator or a non-numeric code, are returned as errors and
// skipped.
func Parse(raw []string) ([]Tag, []*ParseError) {
	var tags []Tag
	var parseErrs []*ParseError
	for _, entry := range raw {
		code, value, found := strings.Cut(entry, ":")
		if !found {
			parseErrs = append(parseErrs, &ParseError{Entry: entry, Reason: "missing ':' separator"})
			continue
		}
		m := codePattern.FindStringSubmatch(strings.TrimSpace(code))
		if m == nil {
			parseErrs = append(parseErrs, &ParseError{Entry: entry, Reason: "non-numeric code"})
			continue
		}
		key := Key{}
		key.Code, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			key.Sub, _ = strconv.Atoi(m[2])
		}
		tags = append(tags, Tag{Key: key, Value: strings.TrimSpace(value)})
	}
	return tags, parseErrs
}

// Group combines tags by key, joining repeated values with ", " in input
// order. Sub-numbered keys group separately from their base code.
func Group(tags []Tag) map[Key]string {
	grouped := make(map[Key]string)
	for _, tag := range tags {
		if existing, ok := grouped[tag.Key]; ok {
			grouped[tag.Key] = existing + ", " + tag.Value
		} else {
			grouped[tag.Key] = tag.Value
		}
	}
	return grouped
}

// Keys returns the keys of a grouped tag set, sorted by code then sub-number.
func Keys(grouped map[Key]string) []Key {
	keys := make([]Key, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	SortKeys(keys)
	return keys
}

// SortKeys orders keys by code, then sub-number.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Code != keys[j].Code {
			return keys[i].Code < keys[j].Code
		}
		return keys[i].Sub < keys[j].Sub
	})
}
