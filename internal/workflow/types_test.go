package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, NormalizeConfidence("high"))
	assert.Equal(t, ConfidenceHigh, NormalizeConfidence("  HIGH "))
	assert.Equal(t, ConfidenceMedium, NormalizeConfidence("medium"))
	assert.Equal(t, ConfidenceMedium, NormalizeConfidence("med"))
	assert.Equal(t, ConfidenceLow, NormalizeConfidence("low"))
	assert.Equal(t, ConfidenceLow, NormalizeConfidence("certain"))
	assert.Equal(t, ConfidenceLow, NormalizeConfidence(""))
}

func TestNormalizeSection(t *testing.T) {
	cases := []struct {
		in   string
		want Section
	}{
		{"now", SectionNow},
		{"Now", SectionNow},
		{"next", SectionNext},
		{"later", SectionLater},
		{"Next 1-3 Actions", SectionNow},
		{"Next 1–3 Actions", SectionNow},
		{"Active Tasks", SectionNow},
		{"Current Sprint", SectionNow},
		{"Immediate", SectionNow},
		{"Future Tasks", SectionLater},
		{"Backlog", SectionLater},
		{"Someday/Maybe", SectionLater},
		{"Deferred", SectionLater},
		{"", SectionNext},
		{"whatever", SectionNext},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeSection(c.in), "NormalizeSection(%q)", c.in)
	}
}

func TestNormalizeSectionIsIdempotent(t *testing.T) {
	inputs := []string{"now", "next", "later", "Next 1-3 Actions", "Future Tasks", "garbage"}
	for _, in := range inputs {
		once := NormalizeSection(in)
		assert.Equal(t, once, NormalizeSection(string(once)), "canonical value must map to itself for %q", in)
	}
}

func TestDefaultSyncAction(t *testing.T) {
	cases := []struct {
		conf      Confidence
		completed bool
		want      Action
	}{
		{ConfidenceHigh, false, ActionMarkArchive},
		{ConfidenceMedium, false, ActionMarkComplete},
		{ConfidenceLow, false, ActionSkip},
		{ConfidenceHigh, true, ActionSkip},
		{ConfidenceMedium, true, ActionSkip},
		{ConfidenceLow, true, ActionSkip},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DefaultSyncAction(c.conf, c.completed),
			"DefaultSyncAction(%s, %v)", c.conf, c.completed)
	}
}
