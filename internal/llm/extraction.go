package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ResumeExtraction is the structured fact set pulled out of a resume by the
// reasoning service. Each entry carries the model's own confidence so the
// fact store can label it downstream.
type ResumeExtraction struct {
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	ProfileURL  string             `json:"profile_url"`
	Skills      []ExtractedSkill   `json:"skills"`
	Employments []ExtractedCompany `json:"employments"`
	Education   []string           `json:"education"`
	Locations   []string           `json:"locations"`
}

type ExtractedSkill struct {
	Name       string  `json:"skill"`
	Confidence float64 `json:"confidence"`
}

type ExtractedCompany struct {
	Name       string  `json:"name"`
	Position   string  `json:"position"`
	StartYear  int     `json:"start_year"`
	EndYear    int     `json:"end_year"`
	IsCurrent  bool    `json:"is_current"`
	Confidence float64 `json:"confidence"`
}

// ExtractFacts asks the reasoning service to pull structured facts out of
// resume text. Transport failures are already retried inside Generate.
func (s *Service) ExtractFacts(ctx context.Context, resumeText string) (*ResumeExtraction, error) {
	prompt := fmt.Sprintf(`You are an expert resume parser. Extract structured information.

Resume text:
"""
%s
"""

Return ONLY valid JSON (no markdown) with this exact structure:
{
  "name": "Full name",
  "email": "address or empty string",
  "phone": "number or empty string",
  "profile_url": "LinkedIn or similar profile URL, or empty string",
  "skills": [{"skill": "Canonical name", "confidence": 0.95}],
  "employments": [
    {"name": "Company", "position": "Title", "start_year": 2020, "end_year": 0, "is_current": true, "confidence": 0.95}
  ],
  "education": ["Institution / degree strings"],
  "locations": ["City names"]
}

Important:
- Normalize skill names (e.g. "K8s" becomes "Kubernetes")
- Use 0 for unknown years, empty string for unknown text fields
- Confidence reflects how explicitly the resume states the fact`, resumeText)

	response, err := s.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var extraction ResumeExtraction
	if err := json.Unmarshal([]byte(response), &extraction); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	return &extraction, nil
}
