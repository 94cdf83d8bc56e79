package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameEmailDifferentNameIsHard(t *testing.T) {
	a := Identity{ID: "c1", Name: "Jane Doe", Email: "jane@x.com"}
	b := Identity{ID: "c2", Name: "Janet Smith", Email: "JANE@X.COM"}

	result := Compare(a, b, 0, false)

	assert.Equal(t, MatchHard, result.MatchType)
	assert.Equal(t, 1.0, result.Score)
	require.Len(t, result.Reasons, 1)
	assert.Equal(t, ReasonEmail, result.Reasons[0].Type)
	assert.Equal(t, 1.0, result.Reasons[0].Confidence)
}

func TestLinkedInAloneIsHard(t *testing.T) {
	a := Identity{ID: "c1", LinkedIn: "https://www.linkedin.com/in/jdoe/"}
	b := Identity{ID: "c2", LinkedIn: "linkedin.com/in/jdoe"}

	result := Compare(a, b, 0, false)

	assert.Equal(t, MatchHard, result.MatchType)
	require.Len(t, result.Reasons, 1)
	assert.Equal(t, ReasonLinkedIn, result.Reasons[0].Type)
}

func TestHardTierRegardlessOfOtherSignals(t *testing.T) {
	a := Identity{ID: "c1", Name: "John Smith", Email: "j@x.com", Phone: "+1 (555) 010-2000"}
	b := Identity{ID: "c2", Name: "Entirely Different", Email: "j@x.com", Phone: "15550102000"}

	result := Compare(a, b, 0.1, true)
	assert.Equal(t, MatchHard, result.MatchType)
}

func TestSimilarNamesSharedEmployerAndResumeIsStrong(t *testing.T) {
	a := Identity{
		ID:   "c1",
		Name: "John Smith",
		Employments: []Employment{
			{Company: "WebScale Inc", StartYear: 2022, EndYear: 2024},
		},
	}
	b := Identity{
		ID:   "c2",
		Name: "Johnny Smith",
		Employments: []Employment{
			{Company: "WebScale Inc", StartYear: 2023, EndYear: 2025},
		},
	}

	result := Compare(a, b, 0.85, true)

	assert.Equal(t, MatchStrong, result.MatchType)
	assert.GreaterOrEqual(t, result.Score, 0.90)
	require.Len(t, result.Reasons, 3)

	types := map[string]bool{}
	for _, r := range result.Reasons {
		types[r.Type] = true
		assert.NotEmpty(t, r.Detail)
	}
	assert.True(t, types[ReasonName])
	assert.True(t, types[ReasonResume])
	assert.True(t, types[ReasonCompany])
}

func TestPhoneMatchAlone(t *testing.T) {
	a := Identity{ID: "c1", Name: "Ann Lee", Phone: "+49 151 2345 6789"}
	b := Identity{ID: "c2", Name: "A. Completely Unrelated", Phone: "004915123456789"}

	// Different country-code formatting normalizes differently: not a match.
	result := Compare(a, b, 0, false)
	assert.Equal(t, MatchNone, result.MatchType)

	b.Phone = "+49 (151) 23456789"
	result = Compare(a, b, 0, false)
	assert.Equal(t, MatchStrong, result.MatchType)
	require.Len(t, result.Reasons, 1)
	assert.Equal(t, ReasonPhone, result.Reasons[0].Type)
}

func TestUnrelatedCandidatesNotSurfaced(t *testing.T) {
	a := Identity{ID: "c1", Name: "Maria Gonzalez", Email: "maria@a.com"}
	b := Identity{ID: "c2", Name: "Wei Chen", Email: "wei@b.com"}

	result := Compare(a, b, 0.3, true)
	assert.Equal(t, MatchNone, result.MatchType)
}

func TestNameBelowFloorDoesNotFire(t *testing.T) {
	a := Identity{ID: "c1", Name: "Robert Miller"}
	b := Identity{ID: "c2", Name: "Alice Wong"}

	result := Compare(a, b, 0, false)
	assert.Empty(t, result.Reasons)
	assert.Equal(t, MatchNone, result.MatchType)
}

func TestResumeBelowFloorDoesNotFire(t *testing.T) {
	a := Identity{ID: "c1", Name: "X"}
	b := Identity{ID: "c2", Name: "Y"}

	result := Compare(a, b, 0.79, true)
	assert.Empty(t, result.Reasons)
}

func TestCompanyOverlapRequiresDateIntersection(t *testing.T) {
	a := Identity{ID: "c1", Employments: []Employment{{Company: "Acme Inc", StartYear: 2015, EndYear: 2017}}}
	b := Identity{ID: "c2", Employments: []Employment{{Company: "ACME", StartYear: 2020, EndYear: 2022}}}

	result := Compare(a, b, 0, false)
	assert.Empty(t, result.Reasons)

	// Ongoing employment overlaps a later stint.
	a.Employments[0].EndYear = 0
	result = Compare(a, b, 0, false)
	require.Len(t, result.Reasons, 1)
	assert.Equal(t, ReasonCompany, result.Reasons[0].Type)
}

func TestAggregateIsRenormalizedWeightedMean(t *testing.T) {
	reasons := []Reason{
		{Type: ReasonName, Confidence: 0.9},
		{Type: ReasonResume, Confidence: 0.8},
	}
	// (0.25*0.9 + 0.20*0.8) / 0.45
	assert.InDelta(t, 0.8556, aggregate(reasons), 1e-4)
}

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		score float64
		tier  MatchType
	}{
		{0.95, MatchStrong},
		{0.90, MatchStrong},
		{0.89, MatchFuzzy},
		{0.80, MatchFuzzy},
		{0.79, MatchReview},
		{0.60, MatchReview},
		{0.59, MatchNone},
	}
	for _, c := range cases {
		assert.Equal(t, c.tier, classify(c.score), "score %v", c.score)
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityRank(MatchHard), SeverityRank(MatchStrong))
	assert.Less(t, SeverityRank(MatchStrong), SeverityRank(MatchFuzzy))
	assert.Less(t, SeverityRank(MatchFuzzy), SeverityRank(MatchReview))
}
