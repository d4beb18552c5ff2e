package deployment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeproject/camtrap-go/internal/errors"
	"github.com/safeproject/camtrap-go/internal/metadata"
)

// fakeReader is a canned metadata oracle. Paths without an entry behave like
// unreadable files.
type fakeReader struct {
	tags map[string]metadata.Tags
}

func (f *fakeReader) ReadTags(paths []string) (map[string]metadata.Tags, error) {
	out := make(map[string]metadata.Tags)
	for _, p := range paths {
		if t, ok := f.tags[p]; ok {
			out[p] = t
		}
	}
	return out, nil
}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("image data"), 0o644))
	return path
}

func timestampTags(ts string) metadata.Tags {
	return metadata.Tags{metadata.TagDateTimeOriginal: ts}
}

func TestBuildPlanDistinctTimestamps(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{tags: map[string]metadata.Tags{}}
	for i, name := range []string{"IMG_0001.JPG", "IMG_0002.JPG", "IMG_0003.JPG"} {
		path := writeImage(t, dir, name)
		reader.tags[path] = timestampTags("2016:05:18 20:22:5" + string(rune('6'+i)))
	}

	plan, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dir}, nil)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 3)
	seen := make(map[string]bool)
	for _, entry := range plan.Entries {
		assert.False(t, seen[entry.Destination], "destination %s duplicated", entry.Destination)
		seen[entry.Destination] = true
		// Alone in their second, so no burst suffix beyond 0.
		assert.Equal(t, 0, entry.Record.Sequence)
	}
	assert.Equal(t, "F100-1-1_20160518", plan.Identity.FolderName())
	assert.Equal(t, "F100-1-1_20160518_202256_0.jpg", plan.Entries[0].Destination)
}

func TestBuildPlanBurstSequencing(t *testing.T) {
	t.Run("no hints uses lexical filename order", func(t *testing.T) {
		dir := t.TempDir()
		reader := &fakeReader{tags: map[string]metadata.Tags{}}
		// Written out of order on purpose; assignment must not depend on it.
		pathB := writeImage(t, dir, "IMG_B.JPG")
		pathA := writeImage(t, dir, "IMG_A.JPG")
		reader.tags[pathA] = timestampTags("2016:05:18 20:22:56")
		reader.tags[pathB] = timestampTags("2016:05:18 20:22:56")

		plan, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dir}, nil)
		require.NoError(t, err)
		require.Len(t, plan.Entries, 2)

		bySource := make(map[string]int)
		for _, entry := range plan.Entries {
			bySource[filepath.Base(entry.Record.SourcePath)] = entry.Record.Sequence
		}
		assert.Equal(t, 1, bySource["IMG_A.JPG"])
		assert.Equal(t, 2, bySource["IMG_B.JPG"])
	})

	t.Run("metadata hints win", func(t *testing.T) {
		dir := t.TempDir()
		reader := &fakeReader{tags: map[string]metadata.Tags{}}
		pathA := writeImage(t, dir, "IMG_A.JPG")
		pathB := writeImage(t, dir, "IMG_B.JPG")
		reader.tags[pathA] = metadata.Tags{
			metadata.TagDateTimeOriginal: "2016:05:18 20:22:56",
			metadata.TagSequence:         "2 3",
		}
		reader.tags[pathB] = timestampTags("2016:05:18 20:22:56")

		plan, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dir}, nil)
		require.NoError(t, err)

		bySource := make(map[string]int)
		for _, entry := range plan.Entries {
			bySource[filepath.Base(entry.Record.SourcePath)] = entry.Record.Sequence
		}
		assert.Equal(t, 2, bySource["IMG_A.JPG"])
		// The hintless image takes the lowest free position.
		assert.Equal(t, 1, bySource["IMG_B.JPG"])
	})

	t.Run("filename n of N pattern supplements missing hint", func(t *testing.T) {
		dir := t.TempDir()
		reader := &fakeReader{tags: map[string]metadata.Tags{}}
		path := writeImage(t, dir, "IMG 3 of 5.JPG")
		reader.tags[path] = timestampTags("2016:05:18 20:22:56")

		plan, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dir}, nil)
		require.NoError(t, err)
		require.Len(t, plan.Entries, 1)
		assert.Equal(t, 3, plan.Entries[0].Record.Sequence)
	})
}

func TestBuildPlanStartDate(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	calibDir := t.TempDir()
	reader := &fakeReader{tags: map[string]metadata.Tags{}}

	later := writeImage(t, dirA, "IMG_0001.JPG")
	earlier := writeImage(t, dirB, "IMG_0002.JPG")
	calib := writeImage(t, calibDir, "IMG_0003.JPG")
	reader.tags[later] = timestampTags("2016:05:20 08:00:00")
	reader.tags[earlier] = timestampTags("2016:05:18 20:22:56")
	// Calibration shot before the deployment started must not move the date.
	reader.tags[calib] = timestampTags("2016:05:10 09:00:00")

	// Folder order must not matter.
	for _, dirs := range [][]string{{dirA, dirB}, {dirB, dirA}} {
		plan, err := NewNamer(reader, 5).BuildPlan("F100-1-1", dirs, []string{calibDir})
		require.NoError(t, err)
		assert.Equal(t, "F100-1-1_20160518", plan.Identity.FolderName())
	}
}

func TestBuildPlanNoValidTimestamps(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{tags: map[string]metadata.Tags{}}
	path := writeImage(t, dir, "IMG_0001.JPG")
	reader.tags[path] = metadata.Tags{metadata.TagDateTimeOriginal: "not a date"}

	_, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dir}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValidTimestamps))
}

func TestBuildPlanMissingTimestampExcluded(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{tags: map[string]metadata.Tags{}}
	good := writeImage(t, dir, "IMG_0001.JPG")
	writeImage(t, dir, "IMG_0002.JPG") // unreadable: absent from oracle
	reader.tags[good] = timestampTags("2016:05:18 20:22:56")

	plan, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dir}, nil)
	require.NoError(t, err)
	assert.Len(t, plan.Entries, 1)
	require.Len(t, plan.Failures, 1)
	assert.Contains(t, plan.Failures[0].SourcePath, "IMG_0002.JPG")
}

func TestBuildPlanCollision(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	reader := &fakeReader{tags: map[string]metadata.Tags{}}

	// Same second and same sequence hint in two different folders collide.
	pathA := writeImage(t, dirA, "IMG_0001.JPG")
	pathB := writeImage(t, dirB, "IMG_0001.JPG")
	burst := metadata.Tags{
		metadata.TagDateTimeOriginal: "2016:05:18 20:22:56",
		metadata.TagSequence:         "1 3",
	}
	reader.tags[pathA] = burst
	reader.tags[pathB] = burst

	outputRoot := t.TempDir()
	_, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{dirA, dirB}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameCollision))

	var collisionErr *CollisionError
	require.True(t, errors.As(err, &collisionErr))
	require.Len(t, collisionErr.Collisions, 1)
	assert.Len(t, collisionErr.Collisions[0].Sources, 2)

	// No plan means the consolidator was never reached: zero writes.
	entries, readErr := os.ReadDir(outputRoot)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestBuildPlanLocationValidation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		tagged   string // keyword 15 value on the image, empty for none
		wantErr  bool
		wantLoc  string
	}{
		{"provided and untagged", "F100-1-1", "", false, "F100-1-1"},
		{"provided matches tag", "F100-1-1", "F100-1-1", false, "F100-1-1"},
		{"provided conflicts with tag", "F100-1-1", "E100-2-23", true, ""},
		{"adopted from tag", "", "E100-2-23", false, "E100-2-23"},
		{"neither provided nor tagged", "", "", true, ""},
		{"unsafe location code", "bad/loc", "", true, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			reader := &fakeReader{tags: map[string]metadata.Tags{}}
			path := writeImage(t, dir, "IMG_0001.JPG")
			tags := timestampTags("2016:05:18 20:22:56")
			if tc.tagged != "" {
				tags[metadata.TagKeywords] = []any{"15: " + tc.tagged}
			}
			reader.tags[path] = tags

			plan, err := NewNamer(reader, 5).BuildPlan(tc.location, []string{dir}, nil)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantLoc, plan.Identity.Location)
		})
	}
}

func TestBuildPlanMissingSourceDir(t *testing.T) {
	reader := &fakeReader{tags: map[string]metadata.Tags{}}
	_, err := NewNamer(reader, 5).BuildPlan("F100-1-1", []string{filepath.Join(t.TempDir(), "missing")}, nil)
	require.Error(t, err)
}
