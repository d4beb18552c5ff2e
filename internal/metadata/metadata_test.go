package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString(t *testing.T) {
	tags := Tags{
		"Make":        "Reconyx",
		"ImageHeight": float64(1080),
		"ISO":         float64(100.5),
		"Count":       3,
		"Flag":        true,
	}

	tests := []struct {
		name string
		tag  string
		want string
		ok   bool
	}{
		{"string", "Make", "Reconyx", true},
		{"whole float", "ImageHeight", "1080", true},
		{"fractional float", "ISO", "100.5", true},
		{"int", "Count", "3", true},
		{"bool", "Flag", "true", true},
		{"absent", "Model", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tags.GetString(tc.tag)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetStrings(t *testing.T) {
	tags := Tags{
		"List":   []any{"15: F100-1-1", "16: Civet"},
		"Typed":  []string{"a", "b"},
		"Single": "only one",
	}
	assert.Equal(t, []string{"15: F100-1-1", "16: Civet"}, tags.GetStrings("List"))
	assert.Equal(t, []string{"a", "b"}, tags.GetStrings("Typed"))
	assert.Equal(t, []string{"only one"}, tags.GetStrings("Single"))
	assert.Nil(t, tags.GetStrings("Absent"))
}

func TestCaptureTime(t *testing.T) {
	t.Run("datetime original", func(t *testing.T) {
		tags := Tags{TagDateTimeOriginal: "2016:05:18 20:22:56"}
		ts, ok := tags.CaptureTime()
		require.True(t, ok)
		assert.Equal(t, time.Date(2016, 5, 18, 20, 22, 56, 0, time.UTC), ts)
	})

	t.Run("falls back to create date", func(t *testing.T) {
		tags := Tags{TagCreateDate: "2016:05:18 20:22:56"}
		_, ok := tags.CaptureTime()
		assert.True(t, ok)
	})

	t.Run("corrupt original falls through", func(t *testing.T) {
		tags := Tags{
			TagDateTimeOriginal: "0000:00:00 00:00:00",
			TagCreateDate:       "2016:05:18 20:22:56",
		}
		ts, ok := tags.CaptureTime()
		require.True(t, ok)
		assert.Equal(t, 2016, ts.Year())
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := Tags{}.CaptureTime()
		assert.False(t, ok)
	})
}

func TestSequenceHint(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
		ok   bool
	}{
		{"burst position", "2 3", 2, true},
		{"single frame", "1 1", 1, true},
		{"zero means no burst", "0 0", 0, false},
		{"garbage", "not a sequence", 0, false},
		{"empty", "", 0, false},
		{"numeric value", float64(2), 2, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tags := Tags{TagSequence: tc.raw}
			got, ok := tags.SequenceHint()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
