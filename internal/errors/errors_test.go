package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	err := Newf("metadata read failed for %s", "/data/src").
		Category(CategoryMetadata).
		Context("dir", "/data/src").
		Build()

	assert.Equal(t, "metadata read failed for /data/src", err.Error())
	assert.Equal(t, CategoryMetadata, err.Category)
	assert.Equal(t, "/data/src", err.GetContext()["dir"])
	assert.False(t, err.Timestamp.IsZero())
}

func TestBuildDefaultsToGeneric(t *testing.T) {
	err := Newf("something went wrong").Build()
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestWrappedSentinelSurvives(t *testing.T) {
	sentinel := NewStd("no images with a valid timestamp")
	err := Newf("%w", sentinel).Category(CategoryValidation).Build()

	assert.True(t, Is(err, sentinel))

	var enhanced *EnhancedError
	require.True(t, As(err, &enhanced))
	assert.Equal(t, CategoryValidation, enhanced.Category)
}

func TestIsMatchesCategory(t *testing.T) {
	a := Newf("first").Category(CategoryCopy).Build()
	b := Newf("second").Category(CategoryCopy).Build()
	c := Newf("third").Category(CategoryValidation).Build()

	assert.True(t, Is(a, b), "same category should match")
	assert.False(t, Is(a, c), "different category should not match")
}

func TestGetContextReturnsCopy(t *testing.T) {
	err := Newf("x").Context("k", "v").Build()
	ctx := err.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", err.GetContext()["k"])
}

func TestJoinCollectsErrors(t *testing.T) {
	e1 := NewStd("first failure")
	e2 := NewStd("second failure")
	joined := Join(e1, nil, e2)
	require.Error(t, joined)
	assert.True(t, Is(joined, e1))
	assert.True(t, Is(joined, e2))
}

func TestFileContext(t *testing.T) {
	err := Newf("copy failed").
		Category(CategoryCopy).
		FileContext("/data/src/IMG_0001.JPG").
		Build()
	assert.Equal(t, "/data/src/IMG_0001.JPG", err.GetContext()["file"])
}
