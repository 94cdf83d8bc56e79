package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Generator is the slice of the reasoning service the reranker needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMReranker asks the external reasoning service for a qualitative
// ranking and short explanation of the top candidates.
type LLMReranker struct {
	llm Generator
}

func NewLLMReranker(llm Generator) *LLMReranker {
	return &LLMReranker{llm: llm}
}

func (r *LLMReranker) Rerank(ctx context.Context, job JobProfile, matches []Match) ([]RerankResult, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	response, err := r.llm.Generate(ctx, r.buildPrompt(job, matches))
	if err != nil {
		return nil, fmt.Errorf("rerank call failed: %w", err)
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no valid JSON in rerank response")
	}

	var parsed struct {
		Candidates []RerankResult `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		log.Printf("[Reranker] Failed to parse response: %v\nResponse: %.300s", err, jsonStr)
		return nil, fmt.Errorf("rerank parse error: %w", err)
	}
	return parsed.Candidates, nil
}

func (r *LLMReranker) buildPrompt(job JobProfile, matches []Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert technical recruiter. Rank these candidates for the job below.

**Job:** %s
**Required skills:** %s
**Experience:** %d-%d years

**Candidates:**
`, job.Title, strings.Join(job.RequiredSkills, ", "), job.MinExperienceYears, job.MaxExperienceYears)

	for i, m := range matches {
		fmt.Fprintf(&b, `
---
Candidate %d:
- Candidate ID: %s
- Pipeline score: %.4f (skills=%.2f, experience=%.2f, location=%.2f)
- Pipeline rank: #%d
`, i+1, m.CandidateID,
			m.Score, m.Breakdown[FactorSkills], m.Breakdown[FactorExperience], m.Breakdown[FactorLocation],
			i+1)
	}

	b.WriteString(`
**Response format (JSON):**
{
  "candidates": [
    {"candidate_id": "xxx", "rank": 1, "explanation": "one short sentence on fit"}
  ]
}

**Important:**
- Rank ALL candidates, rank 1 is the best fit
- Keep explanations to one sentence
- Return ONLY valid JSON, no markdown formatting
`)
	return b.String()
}

// extractJSON finds the first balanced JSON object in text. Handles models
// that wrap output in markdown or prose.
func extractJSON(text string) string {
	start := -1
	braceCount := 0
	for i, char := range text {
		if char == '{' {
			if start == -1 {
				start = i
			}
			braceCount++
		} else if char == '}' {
			braceCount--
			if braceCount == 0 && start != -1 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
