package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"talent-match/internal/matching"
)

// Candidate is the persisted identity record. Profile facts (skills,
// experience and so on) live in observations; the columns here are the
// contact attributes duplicate detection keys on.
type Candidate struct {
	ID        string
	TenantID  string
	Name      string
	Email     string
	Phone     string
	LinkedIn  string
	Retired   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Job struct {
	ID                 string
	TenantID           string
	Title              string
	RequiredSkills     []string
	MinExperienceYears int
	MaxExperienceYears int
	Location           string
	RemoteOK           bool
	RequiresWorkAuth   bool
	RequiredEducation  []string
	Status             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (db *DB) SaveCandidate(ctx context.Context, c *Candidate) error {
	query := `INSERT INTO candidates (id, tenant_id, name, email, phone, linkedin_url, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
              ON CONFLICT (id) DO UPDATE
                SET name = EXCLUDED.name,
                    email = EXCLUDED.email,
                    phone = EXCLUDED.phone,
                    linkedin_url = EXCLUDED.linkedin_url,
                    updated_at = NOW()`
	_, err := db.connection.ExecContext(ctx, query,
		c.ID, c.TenantID, c.Name, c.Email, c.Phone, c.LinkedIn)
	return err
}

func (db *DB) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	c := &Candidate{}
	query := `SELECT id, tenant_id, name, email, phone, linkedin_url, retired, created_at, updated_at
              FROM candidates WHERE id = $1`
	err := db.connection.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone, &c.LinkedIn, &c.Retired, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) SaveJob(ctx context.Context, j *Job) error {
	query := `INSERT INTO jobs (id, tenant_id, title, required_skills, min_experience_years, max_experience_years,
                                location, remote_ok, requires_work_auth, required_education, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
              ON CONFLICT (id) DO UPDATE
                SET title = EXCLUDED.title,
                    required_skills = EXCLUDED.required_skills,
                    min_experience_years = EXCLUDED.min_experience_years,
                    max_experience_years = EXCLUDED.max_experience_years,
                    location = EXCLUDED.location,
                    remote_ok = EXCLUDED.remote_ok,
                    requires_work_auth = EXCLUDED.requires_work_auth,
                    required_education = EXCLUDED.required_education,
                    status = EXCLUDED.status,
                    updated_at = NOW()`
	_, err := db.connection.ExecContext(ctx, query,
		j.ID, j.TenantID, j.Title, pq.Array(j.RequiredSkills), j.MinExperienceYears, j.MaxExperienceYears,
		j.Location, j.RemoteOK, j.RequiresWorkAuth, pq.Array(j.RequiredEducation), j.Status)
	return err
}

// JobProfile loads one job in the shape the scorer consumes.
func (db *DB) JobProfile(ctx context.Context, jobID string) (matching.JobProfile, error) {
	var j matching.JobProfile
	var skills, education []string
	query := `SELECT id, tenant_id, title, required_skills, min_experience_years, max_experience_years,
                     location, remote_ok, requires_work_auth, required_education, status
              FROM jobs WHERE id = $1`
	err := db.connection.QueryRowContext(ctx, query, jobID).Scan(
		&j.ID, &j.TenantID, &j.Title, pq.Array(&skills), &j.MinExperienceYears, &j.MaxExperienceYears,
		&j.Location, &j.RemoteOK, &j.RequiresWorkAuth, pq.Array(&education), &j.Status)
	if err != nil {
		return matching.JobProfile{}, err
	}
	j.RequiredSkills = skills
	j.RequiredEducation = education
	return j, nil
}

// OpenJobs returns the scoring view of every open job in a tenant.
func (db *DB) OpenJobs(ctx context.Context, tenantID string) ([]matching.JobProfile, error) {
	query := `SELECT id, tenant_id, title, required_skills, min_experience_years, max_experience_years,
                     location, remote_ok, requires_work_auth, required_education, status
              FROM jobs WHERE tenant_id = $1 AND status = 'open'
              ORDER BY created_at`
	rows, err := db.connection.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []matching.JobProfile
	for rows.Next() {
		var j matching.JobProfile
		var skills, education []string
		if err := rows.Scan(&j.ID, &j.TenantID, &j.Title, pq.Array(&skills), &j.MinExperienceYears,
			&j.MaxExperienceYears, &j.Location, &j.RemoteOK, &j.RequiresWorkAuth,
			pq.Array(&education), &j.Status); err != nil {
			return nil, err
		}
		j.RequiredSkills = skills
		j.RequiredEducation = education
		res = append(res, j)
	}
	return res, rows.Err()
}

// CandidateProfile assembles the scoring view of one candidate from its
// identity row plus the current observations.
func (db *DB) CandidateProfile(ctx context.Context, candidateID string) (matching.CandidateProfile, error) {
	var p matching.CandidateProfile
	query := `SELECT id, tenant_id, name, updated_at FROM candidates WHERE id = $1 AND retired = false`
	err := db.connection.QueryRowContext(ctx, query, candidateID).Scan(&p.ID, &p.TenantID, &p.Name, &p.UpdatedAt)
	if err != nil {
		return matching.CandidateProfile{}, err
	}
	if err := db.fillProfileFacts(ctx, &p); err != nil {
		return matching.CandidateProfile{}, err
	}
	return p, nil
}

// CandidateProfiles returns the scoring view of every active candidate in
// a tenant. Observations are pulled in one pass, not per candidate.
func (db *DB) CandidateProfiles(ctx context.Context, tenantID string) ([]matching.CandidateProfile, error) {
	query := `SELECT id, tenant_id, name, updated_at FROM candidates
              WHERE tenant_id = $1 AND retired = false ORDER BY created_at`
	rows, err := db.connection.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*matching.CandidateProfile)
	var order []string
	for rows.Next() {
		var p matching.CandidateProfile
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.ExperienceYears = -1
		byID[p.ID] = &p
		order = append(order, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	obsQuery := `SELECT o.candidate_id, o.field, o.value_type, o.value_string, o.value_number, o.value_list, o.extracted_at
                 FROM observations o
                 JOIN candidates c ON c.id = o.candidate_id
                 WHERE c.tenant_id = $1 AND o.current = true`
	obsRows, err := db.connection.QueryContext(ctx, obsQuery, tenantID)
	if err != nil {
		return nil, err
	}
	defer obsRows.Close()

	for obsRows.Next() {
		var candidateID, field, valueType string
		var valueString sql.NullString
		var valueNumber sql.NullFloat64
		var valueList []string
		var extractedAt time.Time
		if err := obsRows.Scan(&candidateID, &field, &valueType, &valueString, &valueNumber,
			pq.Array(&valueList), &extractedAt); err != nil {
			return nil, err
		}
		p, ok := byID[candidateID]
		if !ok {
			continue
		}
		applyProfileFact(p, field, valueString.String, valueNumber.Float64, valueList, extractedAt)
	}
	if err := obsRows.Err(); err != nil {
		return nil, err
	}

	res := make([]matching.CandidateProfile, 0, len(order))
	for _, id := range order {
		res = append(res, *byID[id])
	}
	return res, nil
}

func (db *DB) fillProfileFacts(ctx context.Context, p *matching.CandidateProfile) error {
	p.ExperienceYears = -1
	query := `SELECT field, value_type, value_string, value_number, value_list, extracted_at
              FROM observations WHERE candidate_id = $1 AND current = true`
	rows, err := db.connection.QueryContext(ctx, query, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var field, valueType string
		var valueString sql.NullString
		var valueNumber sql.NullFloat64
		var valueList []string
		var extractedAt time.Time
		if err := rows.Scan(&field, &valueType, &valueString, &valueNumber, pq.Array(&valueList), &extractedAt); err != nil {
			return err
		}
		applyProfileFact(p, field, valueString.String, valueNumber.Float64, valueList, extractedAt)
	}
	return rows.Err()
}

// applyProfileFact folds one current observation into the scoring profile.
// Unknown fields are ignored so new observation kinds never break scoring.
func applyProfileFact(p *matching.CandidateProfile, field, str string, num float64, list []string, extractedAt time.Time) {
	switch field {
	case "skills":
		p.Skills = append(p.Skills, list...)
		p.SkillObservedAt = append(p.SkillObservedAt, extractedAt)
	case "certification":
		p.SkillObservedAt = append(p.SkillObservedAt, extractedAt)
	case "experience_years":
		p.ExperienceYears = int(num)
	case "location":
		p.Location = str
	case "remote_ok":
		p.RemoteOK = strings.EqualFold(str, "true") || strings.EqualFold(str, "yes")
	case "work_authorized":
		p.WorkAuthorized = strings.EqualFold(str, "true") || strings.EqualFold(str, "yes")
	case "education":
		if str != "" {
			p.Education = append(p.Education, str)
		}
		p.Education = append(p.Education, list...)
	}
}

// RetireCandidate soft-deletes a candidate record. Used by the merge flow;
// retired candidates drop out of matching and detection.
func (db *DB) RetireCandidate(ctx context.Context, id string) error {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE candidates SET retired = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("candidate %s not found", id)
	}
	return nil
}
