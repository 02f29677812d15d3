package turn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendSegmentMergesContinuations(t *testing.T) {
	cases := []struct {
		name     string
		existing []string
		incoming string
		want     []string
	}{
		{"first segment", nil, "i worked on", []string{"i worked on"}},
		{"identical repeat", []string{"i worked on"}, "i worked on", []string{"i worked on"}},
		{"growing continuation", []string{"i worked on"}, "i worked on a parser", []string{"i worked on a parser"}},
		{"shrinking echo", []string{"i worked on a parser"}, "i worked on", []string{"i worked on a parser"}},
		{"new segment", []string{"i worked on a parser"}, "it was in go", []string{"i worked on a parser", "it was in go"}},
		{"blank ignored", []string{"hello"}, "   ", []string{"hello"}},
		{"whitespace normalized", nil, "  spaced   out  ", []string{"spaced out"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := appendSegment(append([]string(nil), tc.existing...), tc.incoming)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCollectSegmentsAddsInterimTail(t *testing.T) {
	segments := []string{"first answer part"}
	got := collectSegments(segments, "and then")
	require.Equal(t, []string{"first answer part", "and then"}, got)

	// The source slice is never mutated.
	require.Equal(t, []string{"first answer part"}, segments)

	require.Equal(t, []string{"solo"}, collectSegments(nil, "solo"))
	require.Equal(t, []string{"done"}, collectSegments([]string{"done"}, ""))
}

func TestAssembleJoinsWithSpaces(t *testing.T) {
	require.Equal(t, "a b c", assemble([]string{"a", "b", "c"}))
	require.Equal(t, "", assemble(nil))
	require.Equal(t, "kept", assemble([]string{"", "kept", "  "}))
}
