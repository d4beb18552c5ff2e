package deployment

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/safeproject/camtrap-go/internal/conf"
	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/keywords"
	"github.com/safeproject/camtrap-go/internal/logging"
	"github.com/safeproject/camtrap-go/internal/metadata"
	"github.com/safeproject/camtrap-go/internal/scanner"
)

// filenameSequence matches burst positions embedded in source file names as
// "n of N", which some cameras write when the maker note sequence is absent.
var filenameSequence = regexp.MustCompile(`(\d+) of \d+`)

// Namer turns source folders into a validated NamingPlan. All validation is
// complete before the plan exists; the Namer never touches the destination.
type Namer struct {
	reader      metadata.Reader
	log         *slog.Logger
	reportLimit int
}

// NewNamer returns a Namer using the given metadata oracle. reportLimit
// bounds how many problem files are listed per diagnostic.
func NewNamer(reader metadata.Reader, reportLimit int) *Namer {
	return &Namer{
		reader:      reader,
		log:         logging.ForService("deployment"),
		reportLimit: reportLimit,
	}
}

// sourceImage is the working state for one scanned file before it becomes an
// ImageRecord.
type sourceImage struct {
	path      string
	ts        time.Time
	tsOK      bool
	hint      int
	hintOK    bool
	calib     bool
	locations []string
	seq       int
}

// BuildPlan scans the image and calibration folders, resolves capture
// timestamps and burst sequences, derives the deployment identity and
// validates global destination uniqueness.
//
// location may be empty if the images carry consistent location keyword tags;
// a provided location is cross-checked against those tags.
func (n *Namer) BuildPlan(location string, imageDirs, calibDirs []string) (*NamingPlan, error) {
	if location != "" && !conf.ValidLocation(location) {
		return nil, errors.Newf("invalid location code %q", location).
			Category(errors.CategoryValidation).
			Build()
	}

	// Scan everything up front so bad input paths abort before any
	// metadata reading.
	scans := make([]*scanner.Result, 0, len(imageDirs)+len(calibDirs))
	calibFlags := make([]bool, 0, cap(scans))
	for _, dir := range imageDirs {
		res, err := scanner.Scan(dir)
		if err != nil {
			return nil, err
		}
		scans = append(scans, res)
		calibFlags = append(calibFlags, false)
	}
	for _, dir := range calibDirs {
		res, err := scanner.Scan(dir)
		if err != nil {
			return nil, err
		}
		scans = append(scans, res)
		calibFlags = append(calibFlags, true)
	}

	var images []*sourceImage
	var failures []NamingFailure
	for i, res := range scans {
		res.ReportOthers(n.log, n.reportLimit)
		n.log.Info("scanned directory", "dir", res.Dir,
			"images", len(res.Images), "other_files", len(res.Others), "calib", calibFlags[i])

		// One batched oracle call per folder amortizes tool startup.
		tagsByPath, err := n.reader.ReadTags(res.Images)
		if err != nil {
			return nil, errors.Newf("metadata read failed for %s: %w", res.Dir, err).
				Category(errors.CategoryMetadata).
				Context("dir", res.Dir).
				Build()
		}

		for _, path := range res.Images {
			tags, ok := tagsByPath[path]
			if !ok {
				failures = append(failures, NamingFailure{SourcePath: path, Reason: "metadata unreadable"})
				continue
			}
			img := &sourceImage{path: path, calib: calibFlags[i]}
			img.ts, img.tsOK = tags.CaptureTime()
			if !img.tsOK {
				failures = append(failures, NamingFailure{SourcePath: path, Reason: "no usable capture timestamp"})
				continue
			}
			img.hint, img.hintOK = tags.SequenceHint()
			if !img.hintOK {
				if m := filenameSequence.FindStringSubmatch(filepath.Base(path)); m != nil {
					if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
						img.hint, img.hintOK = v, true
					}
				}
			}
			img.locations = locationTags(tags)
			images = append(images, img)
		}
	}

	if len(failures) > 0 {
		n.reportFailures(failures)
	}

	resolved, err := n.resolveLocation(location, images)
	if err != nil {
		return nil, err
	}

	var mains, calibs []*sourceImage
	for _, img := range images {
		if img.calib {
			calibs = append(calibs, img)
		} else {
			mains = append(mains, img)
		}
	}

	if len(mains) == 0 {
		return nil, errors.Newf("%w", ErrNoValidTimestamps).
			Category(errors.CategoryValidation).
			Context("failures", len(failures)).
			Build()
	}

	// Calibration images never influence the start date.
	startDate := mains[0].ts
	for _, img := range mains[1:] {
		if img.ts.Before(startDate) {
			startDate = img.ts
		}
	}
	identity := Identity{Location: resolved, StartDate: startDate}

	// Sequence counters are independent per namespace.
	assignSequences(mains)
	assignSequences(calibs)

	plan := &NamingPlan{Identity: identity, Failures: failures}
	destSources := make(map[string][]string)
	for _, img := range append(mains, calibs...) {
		rec := ImageRecord{
			SourcePath: img.path,
			Timestamp:  img.ts,
			Sequence:   img.seq,
			Calib:      img.calib,
		}
		dest := destinationName(resolved, rec)
		destSources[dest] = append(destSources[dest], img.path)
		plan.Entries = append(plan.Entries, PlanEntry{Record: rec, Destination: dest})
	}

	if err := checkCollisions(destSources); err != nil {
		return nil, err
	}

	sort.Slice(plan.Entries, func(i, j int) bool {
		a, b := &plan.Entries[i], &plan.Entries[j]
		if !a.Record.Timestamp.Equal(b.Record.Timestamp) {
			return a.Record.Timestamp.Before(b.Record.Timestamp)
		}
		return a.Destination < b.Destination
	})

	n.log.Info("naming plan validated",
		"deployment", identity.FolderName(),
		"images", plan.MainCount(),
		"calib", plan.CalibCount(),
		"excluded", len(failures))
	return plan, nil
}

// destinationName builds the canonical file name, rooted under CALIB for
// calibration images.
func destinationName(location string, rec ImageRecord) string {
	ext := strings.ToLower(filepath.Ext(rec.SourcePath))
	name := fmt.Sprintf("%s_%s_%d%s", location, rec.Timestamp.Format("20060102_150405"), rec.Sequence, ext)
	if rec.Calib {
		return filepath.Join(CalibDir, name)
	}
	return name
}

// assignSequences gives every image in one namespace its burst position.
// Metadata hints win; images without a hint get 0 when alone in their second,
// otherwise the lowest free positive integers in lexical file name order.
// Duplicate hints are left in place for collision checking to reject.
func assignSequences(images []*sourceImage) {
	groups := make(map[int64][]*sourceImage)
	for _, img := range images {
		key := img.ts.Unix()
		groups[key] = append(groups[key], img)
	}

	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return filepath.Base(group[i].path) < filepath.Base(group[j].path)
		})

		if len(group) == 1 && !group[0].hintOK {
			group[0].seq = 0
			continue
		}

		used := make(map[int]bool)
		for _, img := range group {
			if img.hintOK {
				img.seq = img.hint
				used[img.hint] = true
			}
		}
		next := 1
		for _, img := range group {
			if img.hintOK {
				continue
			}
			for used[next] {
				next++
			}
			img.seq = next
			used[next] = true
		}
	}
}

// checkCollisions validates that destinations are pairwise distinct across
// the whole plan and reports every duplicate with its contributing sources.
func checkCollisions(destSources map[string][]string) error {
	var collisions []Collision
	for dest, sources := range destSources {
		if len(sources) > 1 {
			sort.Strings(sources)
			collisions = append(collisions, Collision{Destination: dest, Sources: sources})
		}
	}
	if len(collisions) == 0 {
		return nil
	}
	sort.Slice(collisions, func(i, j int) bool {
		return collisions[i].Destination < collisions[j].Destination
	})
	return &CollisionError{Collisions: collisions}
}

// locationTags extracts location keyword values from a file's tags.
func locationTags(tags metadata.Tags) []string {
	parsed, _ := keywords.Parse(tags.GetStrings(metadata.TagKeywords))
	var locations []string
	for _, kw := range parsed {
		if kw.Key.Code == keywords.CodeLocation {
			locations = append(locations, kw.Value)
		}
	}
	return locations
}

// resolveLocation reconciles the provided location code with any location
// keyword tags found in the images.
func (n *Namer) resolveLocation(provided string, images []*sourceImage) (string, error) {
	found := make(map[string]bool)
	for _, img := range images {
		for _, loc := range img.locations {
			found[loc] = true
		}
	}
	tagged := make([]string, 0, len(found))
	for loc := range found {
		tagged = append(tagged, loc)
	}
	sort.Strings(tagged)

	switch {
	case len(tagged) > 1:
		return "", errors.Newf("inconsistent source locations: %s", strings.Join(tagged, ", ")).
			Category(errors.CategoryConsistency).
			Build()
	case provided != "" && len(tagged) == 1 && tagged[0] != provided:
		return "", errors.Newf("location %s does not match image location tag %s", provided, tagged[0]).
			Category(errors.CategoryConsistency).
			Build()
	case provided == "" && len(tagged) == 0:
		return "", errors.Newf("no location tags in files and no location provided").
			Category(errors.CategoryValidation).
			Build()
	case provided == "":
		if !conf.ValidLocation(tagged[0]) {
			return "", errors.Newf("invalid location code %q in image tags", tagged[0]).
				Category(errors.CategoryValidation).
				Build()
		}
		n.log.Info("location adopted from image tags", "location", tagged[0])
		return tagged[0], nil
	default:
		return provided, nil
	}
}

// reportFailures logs excluded files, bounded to the configured report limit.
func (n *Namer) reportFailures(failures []NamingFailure) {
	listed := make([]string, 0, len(failures))
	for _, f := range failures {
		listed = append(listed, f.SourcePath)
	}
	truncated := false
	if n.reportLimit > 0 && len(listed) > n.reportLimit {
		listed = listed[:n.reportLimit]
		truncated = true
	}
	n.log.Warn("files excluded from plan",
		"count", len(failures),
		"files", strings.Join(listed, ", "),
		"truncated", truncated)
}
