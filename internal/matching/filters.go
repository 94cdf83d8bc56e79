package matching

import "strings"

// Hard filters are binary eligibility checks. Failing any one of them
// removes the candidate from consideration for that job entirely; the
// returned reason is logged, not stored.

func passesHardFilters(c CandidateProfile, j JobProfile) (bool, string) {
	if ok, reason := experienceEligible(c, j); !ok {
		return false, reason
	}
	if ok, reason := locationEligible(c, j); !ok {
		return false, reason
	}
	if j.RequiresWorkAuth && !c.WorkAuthorized {
		return false, "work authorization required"
	}
	return true, ""
}

func experienceEligible(c CandidateProfile, j JobProfile) (bool, string) {
	if j.MinExperienceYears <= 0 && j.MaxExperienceYears <= 0 {
		return true, ""
	}
	if c.ExperienceYears < 0 {
		return false, "missing experience attribute"
	}
	if j.MinExperienceYears > 0 && c.ExperienceYears < j.MinExperienceYears {
		return false, "below minimum experience"
	}
	if j.MaxExperienceYears > 0 && c.ExperienceYears > j.MaxExperienceYears {
		return false, "above maximum experience"
	}
	return true, ""
}

func locationEligible(c CandidateProfile, j JobProfile) (bool, string) {
	if j.RemoteOK || j.Location == "" {
		return true, ""
	}
	if c.RemoteOK && c.Location == "" {
		return false, "on-site job, candidate location unknown"
	}
	if looseMatch(c.Location, j.Location) {
		return true, ""
	}
	return false, "location incompatible"
}

// looseMatch treats an exact or containment match as equal, e.g.
// "Berlin" and "Berlin, Germany".
func looseMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
