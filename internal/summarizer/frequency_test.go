package summarizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ragagent/internal/summarizer"
)

func TestSummarizeSelectsTopSentences(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	text := "Bond markets moved lower. Bond yields and bond prices diverged sharply. " +
		"The weather was pleasant yesterday. Investors watched bond auctions closely."

	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	require.Contains(t, strings.ToLower(out), "bond")
	require.LessOrEqual(t, len(strings.Split(out, ". ")), 3)
}

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	text := "Alpha topic sentence one. Beta filler here. Alpha topic sentence two."

	out, err := s.Summarize(text, 2)
	require.NoError(t, err)
	one := strings.Index(out, "one")
	two := strings.Index(out, "two")
	require.Greater(t, one, -1)
	require.Greater(t, two, one)
}

func TestSummarizeShortTextReturnedWhole(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	out, err := s.Summarize("just a fragment without terminator", 3)
	require.NoError(t, err)
	require.Equal(t, "just a fragment without terminator", out)
}

func TestSummarizeCapsAtSentenceCount(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	out, err := s.Summarize("One. Two. Three. Four. Five. Six.", 2)
	require.NoError(t, err)
	require.LessOrEqual(t, strings.Count(out, "."), 2)
}
