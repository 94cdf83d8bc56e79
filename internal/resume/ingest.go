package resume

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"talent-match/internal/dedup"
	"talent-match/internal/embedding"
	"talent-match/internal/facts"
	"talent-match/internal/llm"
	"talent-match/internal/storage"
)

// Store is the slice of the storage layer the ingest flow writes to.
type Store interface {
	SaveCandidate(ctx context.Context, c *storage.Candidate) error
	SaveObservation(ctx context.Context, obs *facts.Observation) error
	SaveEmployment(ctx context.Context, candidateID, company string, startYear, endYear int) error
	SaveResumeDocument(ctx context.Context, doc *storage.ResumeDocument) error
	RecordActivity(ctx context.Context, candidateID, kind, detail string) error
	TouchCandidate(ctx context.Context, candidateID string, at time.Time) error
}

// Extractor is the reasoning-service capability ingest needs.
type Extractor interface {
	ExtractFacts(ctx context.Context, resumeText string) (*llm.ResumeExtraction, error)
}

// Enqueuer requests background vector generation after facts change.
type Enqueuer interface {
	RequestEmbedding(ctx context.Context, tenantID string, entityType embedding.EntityType, entityID, sourceText string, priority int) (bool, error)
}

// DuplicateChecker runs identity comparison for a freshly ingested candidate.
type DuplicateChecker interface {
	DetectForCandidate(ctx context.Context, candidateID string) ([]dedup.Pair, error)
}

// Ingestor turns a parsed resume into a candidate record, its fact
// observations, a queued embedding task and a duplicate-detection pass.
type Ingestor struct {
	store      Store
	extractor  Extractor
	embeddings Enqueuer
	duplicates DuplicateChecker
	now        func() time.Time
}

func NewIngestor(store Store, extractor Extractor, embeddings Enqueuer, duplicates DuplicateChecker) *Ingestor {
	return &Ingestor{
		store:      store,
		extractor:  extractor,
		embeddings: embeddings,
		duplicates: duplicates,
		now:        time.Now,
	}
}

// Result summarizes one ingest run for the API response.
type Result struct {
	CandidateID     string       `json:"candidate_id"`
	DocumentID      string       `json:"document_id"`
	ObservationsSet int          `json:"observations_set"`
	EmbeddingQueued bool         `json:"embedding_queued"`
	DuplicatePairs  []dedup.Pair `json:"duplicate_pairs,omitempty"`
}

// Ingest processes one parsed resume for a tenant. An empty candidateID
// creates a new candidate; otherwise the resume refreshes the existing
// record and its new facts supersede the old ones.
func (in *Ingestor) Ingest(ctx context.Context, tenantID, candidateID string, parsed *ParsedResume) (*Result, error) {
	extraction, err := in.extractor.ExtractFacts(ctx, parsed.FullText)
	if err != nil {
		return nil, fmt.Errorf("fact extraction failed: %w", err)
	}

	isNew := candidateID == ""
	if isNew {
		candidateID = uuid.New().String()
	}

	candidate := &storage.Candidate{
		ID:       candidateID,
		TenantID: tenantID,
		Name:     extraction.Name,
		Email:    extraction.Email,
		Phone:    extraction.Phone,
		LinkedIn: extraction.ProfileURL,
	}
	if err := in.store.SaveCandidate(ctx, candidate); err != nil {
		return nil, fmt.Errorf("save candidate: %w", err)
	}

	doc := &storage.ResumeDocument{
		ID:          uuid.New().String(),
		CandidateID: candidateID,
		Filename:    parsed.Filename,
		FilePath:    parsed.FilePath,
		FileType:    parsed.FileType,
		FileSize:    parsed.FileSize,
		ParsedText:  parsed.FullText,
	}
	if err := in.store.SaveResumeDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save resume document: %w", err)
	}

	count, err := in.saveObservations(ctx, candidateID, doc.ID, extraction)
	if err != nil {
		return nil, err
	}

	for _, emp := range extraction.Employments {
		if emp.Name == "" {
			continue
		}
		endYear := emp.EndYear
		if emp.IsCurrent {
			endYear = 0
		}
		if err := in.store.SaveEmployment(ctx, candidateID, emp.Name, emp.StartYear, endYear); err != nil {
			return nil, fmt.Errorf("save employment: %w", err)
		}
	}

	if err := in.store.TouchCandidate(ctx, candidateID, in.now()); err != nil {
		return nil, err
	}
	action := "resume_ingested"
	if isNew {
		action = "candidate_created"
	}
	if err := in.store.RecordActivity(ctx, candidateID, action, parsed.Filename); err != nil {
		return nil, err
	}

	queued, err := in.embeddings.RequestEmbedding(ctx, tenantID, embedding.EntityCandidate, candidateID, embeddingSource(extraction), 1)
	if err != nil {
		// Vector generation is async anyway; an enqueue failure degrades
		// matching but must not lose the ingested facts.
		log.Printf("[Ingest] Embedding enqueue failed for %s: %v", candidateID, err)
	}

	pairs, err := in.duplicates.DetectForCandidate(ctx, candidateID)
	if err != nil {
		log.Printf("[Ingest] Duplicate detection failed for %s: %v", candidateID, err)
	}

	log.Printf("[Ingest] Candidate %s: %d observations, embedding queued=%t, %d duplicate pairs",
		candidateID, count, queued, len(pairs))

	return &Result{
		CandidateID:     candidateID,
		DocumentID:      doc.ID,
		ObservationsSet: count,
		EmbeddingQueued: queued,
		DuplicatePairs:  pairs,
	}, nil
}

// saveObservations writes the extracted facts as current observations.
func (in *Ingestor) saveObservations(ctx context.Context, candidateID, docID string, ex *llm.ResumeExtraction) (int, error) {
	now := in.now()
	count := 0

	save := func(field string, value facts.Value, confidence float64) error {
		obs := &facts.Observation{
			ID:          uuid.New().String(),
			CandidateID: candidateID,
			Field:       field,
			Value:       value,
			Confidence:  confidence,
			Method:      facts.MethodModelExtracted,
			SourceDocID: &docID,
			ExtractedAt: now,
			Current:     true,
		}
		if err := in.store.SaveObservation(ctx, obs); err != nil {
			return fmt.Errorf("save %s observation: %w", field, err)
		}
		count++
		return nil
	}

	if len(ex.Skills) > 0 {
		names := make([]string, 0, len(ex.Skills))
		minConf := 1.0
		for _, s := range ex.Skills {
			if s.Name == "" {
				continue
			}
			names = append(names, s.Name)
			if s.Confidence > 0 && s.Confidence < minConf {
				minConf = s.Confidence
			}
		}
		if len(names) > 0 {
			if err := save("skills", facts.ListValue(names), minConf); err != nil {
				return count, err
			}
		}
	}

	if years := experienceYears(ex.Employments, now); years >= 0 {
		if err := save("experience_years", facts.NumberValue(float64(years)), 0.85); err != nil {
			return count, err
		}
	}

	if len(ex.Locations) > 0 && ex.Locations[0] != "" {
		if err := save("location", facts.StringValue(ex.Locations[0]), 0.85); err != nil {
			return count, err
		}
	}

	if len(ex.Education) > 0 {
		edu := make([]string, 0, len(ex.Education))
		for _, e := range ex.Education {
			if e != "" {
				edu = append(edu, e)
			}
		}
		if len(edu) > 0 {
			if err := save("education", facts.ListValue(edu), 0.9); err != nil {
				return count, err
			}
		}
	}

	return count, nil
}

// experienceYears derives total experience from the earliest employment
// start year. Returns -1 when no employment carries a usable year.
func experienceYears(employments []llm.ExtractedCompany, now time.Time) int {
	earliest := 0
	for _, emp := range employments {
		if emp.StartYear <= 0 {
			continue
		}
		if earliest == 0 || emp.StartYear < earliest {
			earliest = emp.StartYear
		}
	}
	if earliest == 0 {
		return -1
	}
	years := now.Year() - earliest
	if years < 0 {
		return -1
	}
	return years
}

// embeddingSource builds the text the profile vector is generated from.
// Stable field order keeps the source hash stable for unchanged facts.
func embeddingSource(ex *llm.ResumeExtraction) string {
	var b strings.Builder
	b.WriteString(ex.Name)
	b.WriteString("\nSkills: ")
	for i, s := range ex.Skills {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.Name)
	}
	b.WriteString("\nExperience: ")
	for i, emp := range ex.Employments {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(emp.Position)
		b.WriteString(" at ")
		b.WriteString(emp.Name)
	}
	b.WriteString("\nEducation: ")
	b.WriteString(strings.Join(ex.Education, "; "))
	return b.String()
}
