package dedup

import (
	"fmt"
	"strings"

	"github.com/xrash/smetrics"
)

// Firing floors for the soft signals. A signal below its floor contributes
// nothing rather than dragging the aggregate down.
const (
	nameSimilarityFloor   = 0.82
	resumeSimilarityFloor = 0.80
	minPhoneDigits        = 7
)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeProfileURL strips scheme, www and trailing slashes so
// "https://www.linkedin.com/in/jane/" equals "linkedin.com/in/jane".
func normalizeProfileURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}

func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func normalizeCompany(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range []string{" inc.", " inc", " llc", " ltd", " gmbh", " corp.", " corp"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}

func emailSignal(a, b Identity) *Reason {
	ea, eb := normalizeEmail(a.Email), normalizeEmail(b.Email)
	if ea == "" || ea != eb {
		return nil
	}
	return &Reason{Type: ReasonEmail, Confidence: 1.0, Detail: fmt.Sprintf("identical email %s", ea)}
}

func linkedinSignal(a, b Identity) *Reason {
	la, lb := normalizeProfileURL(a.LinkedIn), normalizeProfileURL(b.LinkedIn)
	if la == "" || la != lb {
		return nil
	}
	return &Reason{Type: ReasonLinkedIn, Confidence: 1.0, Detail: fmt.Sprintf("identical profile %s", la)}
}

func phoneSignal(a, b Identity) *Reason {
	pa, pb := normalizePhone(a.Phone), normalizePhone(b.Phone)
	if len(pa) < minPhoneDigits || pa != pb {
		return nil
	}
	return &Reason{Type: ReasonPhone, Confidence: 1.0, Detail: "identical phone number"}
}

// nameSignal scores full-name similarity with Jaro-Winkler; the coefficient
// is the confidence directly.
func nameSignal(a, b Identity) *Reason {
	na, nb := normalizeName(a.Name), normalizeName(b.Name)
	if na == "" || nb == "" {
		return nil
	}
	similarity := smetrics.JaroWinkler(na, nb, 0.7, 4)
	if similarity < nameSimilarityFloor {
		return nil
	}
	return &Reason{
		Type:       ReasonName,
		Confidence: similarity,
		Detail:     fmt.Sprintf("%q vs %q (similarity %.2f)", a.Name, b.Name, similarity),
	}
}

func resumeSignal(similarity float64, known bool) *Reason {
	if !known || similarity < resumeSimilarityFloor {
		return nil
	}
	return &Reason{
		Type:       ReasonResume,
		Confidence: similarity,
		Detail:     fmt.Sprintf("profile embedding similarity %.2f", similarity),
	}
}

// companySignal fires when both candidates worked at the same employer
// with overlapping employment years.
func companySignal(a, b Identity) *Reason {
	for _, ea := range a.Employments {
		for _, eb := range b.Employments {
			if normalizeCompany(ea.Company) == "" {
				continue
			}
			if normalizeCompany(ea.Company) != normalizeCompany(eb.Company) {
				continue
			}
			if !yearsOverlap(ea, eb) {
				continue
			}
			return &Reason{
				Type:       ReasonCompany,
				Confidence: 0.9,
				Detail:     fmt.Sprintf("both at %s with overlapping dates", ea.Company),
			}
		}
	}
	return nil
}

func yearsOverlap(a, b Employment) bool {
	const openEnded = 1 << 30
	endA, endB := a.EndYear, b.EndYear
	if endA == 0 {
		endA = openEnded
	}
	if endB == 0 {
		endB = openEnded
	}
	if a.StartYear == 0 || b.StartYear == 0 {
		return false
	}
	return a.StartYear <= endB && b.StartYear <= endA
}
