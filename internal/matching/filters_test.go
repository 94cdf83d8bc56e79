package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardFilterExperienceRange(t *testing.T) {
	job := JobProfile{MinExperienceYears: 3, MaxExperienceYears: 8}

	cases := []struct {
		name  string
		years int
		want  bool
	}{
		{"in range", 5, true},
		{"at minimum", 3, true},
		{"at maximum", 8, true},
		{"below minimum", 2, false},
		{"above maximum", 9, false},
		{"unknown", -1, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, _ := passesHardFilters(CandidateProfile{ExperienceYears: c.years, WorkAuthorized: true}, job)
			assert.Equal(t, c.want, ok)
		})
	}
}

func TestHardFilterUnknownExperienceAllowedWithoutRequirement(t *testing.T) {
	ok, _ := passesHardFilters(
		CandidateProfile{ExperienceYears: -1, WorkAuthorized: true},
		JobProfile{},
	)
	assert.True(t, ok)
}

func TestHardFilterLocation(t *testing.T) {
	onsite := JobProfile{Location: "Berlin"}

	ok, _ := passesHardFilters(CandidateProfile{Location: "Berlin, Germany", ExperienceYears: 2, WorkAuthorized: true}, onsite)
	assert.True(t, ok)

	ok, reason := passesHardFilters(CandidateProfile{Location: "Madrid", ExperienceYears: 2, WorkAuthorized: true}, onsite)
	assert.False(t, ok)
	assert.Equal(t, "location incompatible", reason)

	remote := JobProfile{Location: "Berlin", RemoteOK: true}
	ok, _ = passesHardFilters(CandidateProfile{Location: "Madrid", ExperienceYears: 2, WorkAuthorized: true}, remote)
	assert.True(t, ok)
}

func TestHardFilterWorkAuthorization(t *testing.T) {
	job := JobProfile{RequiresWorkAuth: true}

	ok, reason := passesHardFilters(CandidateProfile{ExperienceYears: 2}, job)
	assert.False(t, ok)
	assert.Equal(t, "work authorization required", reason)

	ok, _ = passesHardFilters(CandidateProfile{ExperienceYears: 2, WorkAuthorized: true}, job)
	assert.True(t, ok)
}

func TestSkillOverlap(t *testing.T) {
	count, ratio := skillOverlap(
		[]string{"Go", "PostgreSQL", "Docker"},
		[]string{"go", "postgresql", "kubernetes", "terraform"},
	)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 0.5, ratio, 1e-9)
}

func TestSkillOverlapNoRequirements(t *testing.T) {
	_, ratio := skillOverlap([]string{"Go"}, nil)
	assert.Equal(t, 1.0, ratio)
}

func TestMatchedSkillsPreservesJobSpelling(t *testing.T) {
	matched := matchedSkills([]string{"go", "react"}, []string{"Go", "Kubernetes", "React"})
	assert.Equal(t, []string{"Go", "React"}, matched)
}
