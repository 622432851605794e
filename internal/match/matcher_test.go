package match

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/playtime/internal/hltb"
)

func candidates(names ...string) []hltb.Candidate {
	out := make([]hltb.Candidate, len(names))
	for i, n := range names {
		out[i] = hltb.Candidate{ID: strconv.Itoa(i + 1), Name: n}
	}
	return out
}

func newTestMatcher() *Matcher {
	return NewMatcher(DefaultMappings(), nil)
}

func TestSkipListShortCircuits(t *testing.T) {
	m := newTestMatcher()

	result := m.FindBestMatch("Rocket League", candidates("Rocket League", "Rocket League 2"))
	require.NotNil(t, result)
	assert.Equal(t, MethodSkip, result.Method)
	assert.Nil(t, result.Candidate)
	assert.NotEmpty(t, result.SkipReason)

	// Skip applies even with no candidates at all.
	result = m.FindBestMatch("Valorant", nil)
	require.NotNil(t, result)
	assert.Equal(t, MethodSkip, result.Method)
}

func TestSkipReason(t *testing.T) {
	m := newTestMatcher()

	reason, ok := m.SkipReason("Apex Legends")
	assert.True(t, ok)
	assert.NotEmpty(t, reason)

	_, ok = m.SkipReason("Portal 2")
	assert.False(t, ok)
}

func TestEmptyCandidatesIsNoMatch(t *testing.T) {
	m := newTestMatcher()
	assert.Nil(t, m.FindBestMatch("Portal 2", nil))
}

func TestManualMapping(t *testing.T) {
	m := newTestMatcher()

	result := m.FindBestMatch("CS:GO", candidates(
		"Counter-Strike: Global Offensive",
		"Counter-Strike 2",
		"Counter-Strike: Source",
	))
	require.NotNil(t, result)
	assert.Equal(t, MethodManualMapping, result.Method)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "Counter-Strike: Global Offensive", result.Candidate.Name)
}

func TestYearSpecificMapping(t *testing.T) {
	m := newTestMatcher()
	pool := candidates("DOOM", "DOOM 2016", "DOOM Eternal", "DOOM II")

	result := m.FindBestMatch("DOOM (2016)", pool)
	require.NotNil(t, result)
	assert.Equal(t, MethodYearSpecific, result.Method)
	assert.Equal(t, "DOOM 2016", result.Candidate.Name)

	result = m.FindBestMatch("DOOM (1993)", pool)
	require.NotNil(t, result)
	assert.Equal(t, MethodYearSpecific, result.Method)
	assert.Equal(t, "DOOM", result.Candidate.Name)
}

func TestExactMatchAtMinimalNormalization(t *testing.T) {
	m := newTestMatcher()

	result := m.FindBestMatch("The Witcher 3: Wild Hunt", candidates(
		"The Witcher 2: Assassins of Kings",
		"The Witcher 3: Wild Hunt",
	))
	require.NotNil(t, result)
	assert.Equal(t, MethodExact, result.Method)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "The Witcher 3: Wild Hunt", result.Candidate.Name)
}

func TestFuzzyStandardMatch(t *testing.T) {
	m := newTestMatcher()

	// Missing article keeps the pair from matching exactly but leaves
	// them close at standard normalization.
	result := m.FindBestMatch("Witcher 3 Wild Hunt", candidates(
		"The Witcher 3: Wild Hunt",
		"The Witcher 2: Assassins of Kings",
	))
	require.NotNil(t, result)
	assert.Equal(t, "The Witcher 3: Wild Hunt", result.Candidate.Name)
	assert.Equal(t, MethodFuzzyStandard, result.Method)
	assert.GreaterOrEqual(t, result.Confidence, FloorFuzzyStandard)
}

func TestFuzzyAggressiveStripsEdition(t *testing.T) {
	m := newTestMatcher()

	result := m.FindBestMatch("Sleeping Dogs: Definitive Edition", candidates(
		"Sleeping Dogs",
		"Watch Dogs",
	))
	require.NotNil(t, result)
	assert.Equal(t, "Sleeping Dogs", result.Candidate.Name)
	assert.Contains(t, []Method{MethodFuzzyStandard, MethodFuzzyAggressive}, result.Method)
}

func TestNothingClearsFloor(t *testing.T) {
	m := newTestMatcher()

	result := m.FindBestMatch("Stardew Valley", candidates(
		"Quake Champions",
		"Forza Horizon 5",
	))
	assert.Nil(t, result)
}

func TestExplain(t *testing.T) {
	m := newTestMatcher()

	diag := m.Explain("DOOM (2016)", candidates("DOOM 2016", "DOOM Eternal"))
	assert.Equal(t, "DOOM (2016)", diag.Query)
	assert.Equal(t, "doom (2016)", diag.NormalizedMinimal)
	assert.Len(t, diag.Candidates, 2)
	for _, cs := range diag.Candidates {
		assert.Len(t, cs.Scores, 6)
	}
	require.NotNil(t, diag.Result)
	assert.Equal(t, MethodYearSpecific, diag.Result.Method)
}
