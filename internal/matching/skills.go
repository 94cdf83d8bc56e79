package matching

import "strings"

// Skill-tag intersection is the cheap stage-2 pre-filter: it bounds the
// candidate pool before the vector lookup without touching the index.

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func skillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		if n := normalizeSkill(s); n != "" {
			set[n] = true
		}
	}
	return set
}

// skillOverlap returns the number of required skills the candidate has and
// the ratio over all required skills. A job with no required skills scores
// a neutral 1.0.
func skillOverlap(candidateSkills, requiredSkills []string) (int, float64) {
	required := skillSet(requiredSkills)
	if len(required) == 0 {
		return 0, 1.0
	}
	have := skillSet(candidateSkills)

	matches := 0
	for s := range required {
		if have[s] {
			matches++
		}
	}
	return matches, float64(matches) / float64(len(required))
}

// matchedSkills lists the required skills found on the candidate, for the
// breakdown detail shown in the UI.
func matchedSkills(candidateSkills, requiredSkills []string) []string {
	have := skillSet(candidateSkills)
	matched := []string{}
	for _, s := range requiredSkills {
		if have[normalizeSkill(s)] {
			matched = append(matched, s)
		}
	}
	return matched
}
