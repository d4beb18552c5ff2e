// Package extract reads a consolidated deployment folder and assembles its
// metadata into a tabular report: a deployment level header cross-checked for
// consistency across images, plus one row per image.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/keywords"
	"github.com/safeproject/camtrap-go/internal/logging"
	"github.com/safeproject/camtrap-go/internal/metadata"
	"github.com/safeproject/camtrap-go/internal/scanner"
)

// cameraFields are deployment level tags that must agree across every image.
var cameraFields = []string{
	"Make",
	"Model",
	"SerialNumber",
	"FirmwareDate",
	"ImageHeight",
	"ImageWidth",
}

// imageFields are per-image tags carried into report rows.
var imageFields = []string{
	"DateTimeOriginal",
	"ExposureTime",
	"ISO",
	"Flash",
	"InfraredIlluminator",
	"MotionSensitivity",
	"AmbientTemperature",
	"SceneCaptureType",
	"Sequence",
	"TriggerMode",
}

// Row is one image's extracted data. File is relative to the deployment
// folder, with calibration images under CALIB/.
type Row struct {
	File      string
	Calib     bool
	Timestamp time.Time
	HasTime   bool
	Fields    map[string]string
	Keywords  map[keywords.Key]string
	Flags     []string
}

// HeaderField is one key: value line of the deployment header block.
type HeaderField struct {
	Key   string
	Value string
}

// Inconsistency records a deployment level field that disagrees across
// images, with every conflicting value and its source files.
type Inconsistency struct {
	Field  string
	Values map[string][]string
}

// Record is the extracted deployment: header, rows ordered by timestamp and
// every problem surfaced along the way.
type Record struct {
	DeploymentPath  string
	Header          []HeaderField
	Rows            []Row
	KeywordKeys     []keywords.Key
	Inconsistencies []Inconsistency
	Problems        []string
}

// Extractor reads deployments through the metadata oracle.
type Extractor struct {
	reader metadata.Reader
	log    *slog.Logger
}

// NewExtractor returns an Extractor using the given metadata oracle.
func NewExtractor(reader metadata.Reader) *Extractor {
	return &Extractor{
		reader: reader,
		log:    logging.ForService("extract"),
	}
}

// Extract reads every image in the deployment folder and its CALIB
// sub-folder. Parsing and consistency problems are reported in the record,
// never aborting extraction: partial annotated output beats none.
func (e *Extractor) Extract(deploymentDir string) (*Record, error) {
	mainScan, err := scanner.Scan(deploymentDir)
	if err != nil {
		return nil, err
	}

	var calibScan *scanner.Result
	calibPath := filepath.Join(deploymentDir, "CALIB")
	if info, statErr := os.Stat(calibPath); statErr == nil && info.IsDir() {
		calibScan, err = scanner.Scan(calibPath)
		if err != nil {
			return nil, err
		}
	}

	record := &Record{DeploymentPath: deploymentDir}

	rows, err := e.buildRows(mainScan, false, deploymentDir, record)
	if err != nil {
		return nil, err
	}
	if calibScan != nil {
		calibRows, err := e.buildRows(calibScan, true, deploymentDir, record)
		if err != nil {
			return nil, err
		}
		rows = append(rows, calibRows...)
	}

	if len(rows) == 0 {
		return nil, errors.Newf("no images found in deployment: %s", deploymentDir).
			Category(errors.CategoryValidation).
			Context("dir", deploymentDir).
			Build()
	}

	// Order rows by timestamp; rows without one sort last by name.
	sort.Slice(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		switch {
		case a.HasTime && b.HasTime:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.File < b.File
		case a.HasTime:
			return true
		case b.HasTime:
			return false
		default:
			return a.File < b.File
		}
	})
	record.Rows = rows

	e.buildHeader(record)
	e.reportProblems(record)
	return record, nil
}

// buildRows reads one folder's images into report rows.
func (e *Extractor) buildRows(scan *scanner.Result, calib bool, deploymentDir string, record *Record) ([]Row, error) {
	tagsByPath, err := e.reader.ReadTags(scan.Images)
	if err != nil {
		return nil, errors.Newf("metadata read failed for %s: %w", scan.Dir, err).
			Category(errors.CategoryMetadata).
			Context("dir", scan.Dir).
			Build()
	}

	rows := make([]Row, 0, len(scan.Images))
	for _, path := range scan.Images {
		rel, relErr := filepath.Rel(deploymentDir, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		row := Row{
			File:     rel,
			Calib:    calib,
			Fields:   make(map[string]string),
			Keywords: make(map[keywords.Key]string),
		}

		tags, ok := tagsByPath[path]
		if !ok {
			record.Problems = append(record.Problems, fmt.Sprintf("%s: metadata unreadable", rel))
			row.Flags = append(row.Flags, "unreadable")
			rows = append(rows, row)
			continue
		}

		for _, field := range cameraFields {
			if v, found := tags.GetString(field); found {
				row.Fields[field] = v
			}
		}
		for _, field := range imageFields {
			if v, found := tags.GetString(field); found {
				row.Fields[field] = v
			}
		}

		if ts, found := tags.CaptureTime(); found {
			row.Timestamp = ts
			row.HasTime = true
			row.Fields["DateTimeOriginal"] = ts.Format("2006-01-02 15:04:05")
		} else {
			record.Problems = append(record.Problems, fmt.Sprintf("%s: no usable capture timestamp", rel))
		}

		parsed, parseErrs := keywords.Parse(tags.GetStrings(metadata.TagKeywords))
		for _, perr := range parseErrs {
			record.Problems = append(record.Problems, fmt.Sprintf("%s: %v", rel, perr))
		}
		row.Keywords = keywords.Group(parsed)

		rows = append(rows, row)
	}
	return rows, nil
}

// buildHeader derives the deployment level header, cross-checking fields that
// must agree across images and flagging rows that disagree with the
// prevailing value.
func (e *Extractor) buildHeader(record *Record) {
	for _, field := range cameraFields {
		value := e.checkConsistent(record, field, func(r *Row) (string, bool) {
			v, ok := r.Fields[field]
			return v, ok
		})
		record.Header = append(record.Header, HeaderField{Key: field, Value: value})
	}

	// Date range over images that produced a timestamp.
	var start, end time.Time
	var nTimes int
	for i := range record.Rows {
		row := &record.Rows[i]
		if !row.HasTime {
			continue
		}
		if nTimes == 0 || row.Timestamp.Before(start) {
			start = row.Timestamp
		}
		if nTimes == 0 || row.Timestamp.After(end) {
			end = row.Timestamp
		}
		nTimes++
	}
	if nTimes > 0 {
		days := int(end.Truncate(24*time.Hour).Sub(start.Truncate(24*time.Hour)).Hours()/24) + 1
		record.Header = append(record.Header,
			HeaderField{Key: "start", Value: start.Format("2006-01-02 15:04:05")},
			HeaderField{Key: "end", Value: end.Format("2006-01-02 15:04:05")},
			HeaderField{Key: "n_days", Value: fmt.Sprintf("%d", days)},
		)
	}
	if nTimes < len(record.Rows) {
		record.Problems = append(record.Problems,
			fmt.Sprintf("capture timestamps incomplete: %d/%d", nTimes, len(record.Rows)))
	}

	// Location is the only keyword tag that must be constant.
	location := e.checkConsistent(record, "Location", func(r *Row) (string, bool) {
		v, ok := r.Keywords[keywords.Key{Code: keywords.CodeLocation}]
		return v, ok
	})
	if location != "" {
		record.Header = append(record.Header, HeaderField{Key: "location", Value: location})
		folder := filepath.Base(record.DeploymentPath)
		if len(folder) < len(location) || folder[:len(location)] != location {
			record.Problems = append(record.Problems,
				fmt.Sprintf("location tag %s does not match deployment folder %s", location, folder))
		}
	} else {
		record.Problems = append(record.Problems, "no location tags (15) found")
	}

	nCalib := 0
	seen := make(map[keywords.Key]bool)
	for i := range record.Rows {
		if record.Rows[i].Calib {
			nCalib++
		}
		for key := range record.Rows[i].Keywords {
			seen[key] = true
		}
	}
	record.Header = append(record.Header,
		HeaderField{Key: "n_images", Value: fmt.Sprintf("%d", len(record.Rows)-nCalib)},
		HeaderField{Key: "n_calib", Value: fmt.Sprintf("%d", nCalib)},
	)

	for key := range seen {
		record.KeywordKeys = append(record.KeywordKeys, key)
	}
	keywords.SortKeys(record.KeywordKeys)
}

// checkConsistent gathers one field across all rows. Disagreements are
// recorded with every conflicting value and its files; the prevailing
// (most common, ties lexical) value becomes the header value and disagreeing
// rows are flagged.
func (e *Extractor) checkConsistent(record *Record, field string, get func(*Row) (string, bool)) string {
	values := make(map[string][]string)
	for i := range record.Rows {
		row := &record.Rows[i]
		if v, ok := get(row); ok && v != "" {
			values[v] = append(values[v], row.File)
		}
	}
	if len(values) == 0 {
		return ""
	}

	distinct := make([]string, 0, len(values))
	for v := range values {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	prevailing := distinct[0]
	for _, v := range distinct[1:] {
		if len(values[v]) > len(values[prevailing]) {
			prevailing = v
		}
	}

	if len(distinct) > 1 {
		record.Inconsistencies = append(record.Inconsistencies, Inconsistency{Field: field, Values: values})
		for i := range record.Rows {
			row := &record.Rows[i]
			if v, ok := get(row); ok && v != "" && v != prevailing {
				row.Flags = append(row.Flags, field)
			}
		}
	}
	return prevailing
}

// reportProblems logs everything surfaced during extraction.
func (e *Extractor) reportProblems(record *Record) {
	for _, inc := range record.Inconsistencies {
		vals := make([]string, 0, len(inc.Values))
		for v, files := range inc.Values {
			vals = append(vals, fmt.Sprintf("%s (%d files)", v, len(files)))
		}
		sort.Strings(vals)
		e.log.Warn("deployment field not consistent", "field", inc.Field, "values", vals)
	}
	for _, p := range record.Problems {
		e.log.Warn("extraction problem", "detail", p)
	}
	e.log.Info("deployment extracted",
		"deployment", record.DeploymentPath,
		"rows", len(record.Rows),
		"inconsistencies", len(record.Inconsistencies))
}
