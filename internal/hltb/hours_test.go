package hltb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"plain hours", "8 Hours", Hours(8)},
		{"bare number", "12", Hours(12)},
		{"decimal hours", "2.5 Hours", Hours(2.5)},
		{"half fraction", "8½ Hours", Hours(8.5)},
		{"quarter fraction", "10¼ Hours", Hours(10.25)},
		{"three-quarter fraction", "6¾ Hours", Hours(6.75)},
		{"range midpoint", "10-12 Hours", Hours(11)},
		{"range without unit", "10 - 12", Hours(11)},
		{"minutes", "50 Mins", Hours(50.0 / 60.0)},
		{"single minute form", "90 min", Hours(1.5)},
		{"compound", "1h 30m", Hours(1.5)},
		{"compound verbose", "2 hours 15 mins", Hours(2.25)},
		{"abbreviated hour", "3 Hrs", Hours(3)},
		{"messy spacing", "  4   Hours  ", Hours(4)},
		{"empty", "", nil},
		{"dash placeholder", "-", nil},
		{"double dash", "--", nil},
		{"not available", "N/A", nil},
		{"to be determined", "TBD", nil},
		{"garbage", "soon™", nil},
		{"words only", "Hours", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimeString(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestSecondsToHours(t *testing.T) {
	got := SecondsToHours(10800)
	require.NotNil(t, got)
	assert.Equal(t, 3.0, *got)

	assert.Nil(t, SecondsToHours(0))
	assert.Nil(t, SecondsToHours(-1))

	got = SecondsToHours(1800)
	require.NotNil(t, got)
	assert.Equal(t, 0.5, *got)
}

func TestCompletionTimes(t *testing.T) {
	empty := CompletionTimes{}
	assert.False(t, empty.HasData())
	assert.False(t, empty.IsPartial())

	full := CompletionTimes{
		MainStory:     Hours(10),
		MainExtra:     Hours(15),
		Completionist: Hours(25),
		AllStyles:     Hours(14),
	}
	assert.True(t, full.HasData())
	assert.False(t, full.IsPartial())

	partial := CompletionTimes{MainStory: Hours(10)}
	assert.True(t, partial.HasData())
	assert.True(t, partial.IsPartial())
}
