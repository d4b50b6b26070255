package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/storage"
)

const (
	// Node properties cannot hold nested maps, so each profile is kept whole
	// as a JSON document property next to the indexed fields.
	upsertCandidateQuery = `
MERGE (c:Candidate {id: $id})
ON CREATE SET c.created_at = datetime()
SET c.helper_type = $helper_type, c.document = $document, c.updated_at = datetime()
WITH c
OPTIONAL MATCH (c)-[old:HAS_SKILL]->(:Skill)
DELETE old
WITH DISTINCT c
UNWIND $skills AS skill
MERGE (s:Skill {name: skill.name})
MERGE (c)-[r:HAS_SKILL]->(s)
SET r.years = skill.years, r.level = skill.level`

	listCandidatesQuery = `
MATCH (c:Candidate {helper_type: $helper_type})
RETURN c.id AS id, c.document AS document
ORDER BY c.created_at, c.id`

	getCandidateQuery = `
MATCH (c:Candidate {id: $id})
RETURN c.id AS id, c.document AS document`

	upsertJobQuery = `
MERGE (j:Job {id: $id})
SET j.employer_id = $employer_id, j.helper_type = $helper_type, j.document = $document, j.updated_at = datetime()
WITH j
OPTIONAL MATCH (j)-[old:REQUIRES]->(:Skill)
DELETE old
WITH DISTINCT j
UNWIND $required AS name
MERGE (s:Skill {name: name})
MERGE (j)-[:REQUIRES]->(s)`

	getJobQuery = `
MATCH (j:Job {id: $id})
RETURN j.id AS id, j.document AS document`
)

// Store serves candidate and job profiles from the graph.
type Store struct {
	client Client
	logger *zap.Logger
}

func New(client Client, lg *zap.Logger) *Store {
	return &Store{client: client, logger: logger.WithFields(lg)}
}

type Candidates struct{ *Store }

type Jobs struct{ *Store }

func (s *Store) Candidates() Candidates { return Candidates{s} }

func (s *Store) Jobs() Jobs { return Jobs{s} }

func (c Candidates) Put(ctx context.Context, candidate *staffing.Candidate) error {
	doc, err := json.Marshal(candidate)
	if err != nil {
		return fmt.Errorf("encode candidate %s: %w", candidate.ID, err)
	}

	skills := make([]map[string]any, 0, len(candidate.Experience))
	for _, cat := range staffing.Categories {
		if s := candidate.Skill(cat); s != nil && s.HasExperience {
			skills = append(skills, map[string]any{
				"name":  string(cat),
				"years": s.Years,
				"level": string(s.Level),
			})
		}
	}

	_, err = c.client.ExecuteWrite(ctx, upsertCandidateQuery, map[string]any{
		"id":          candidate.ID,
		"helper_type": candidate.HelperType,
		"document":    string(doc),
		"skills":      skills,
	})
	return storage.Wrap("put candidate", err)
}

// ListByType returns candidates of a helper type in creation order.
// Undecodable nodes are logged and skipped.
func (c Candidates) ListByType(ctx context.Context, helperType string, limit int) ([]*staffing.Candidate, error) {
	query := listCandidatesQuery
	params := map[string]any{"helper_type": helperType}
	if limit > 0 {
		query += "\nLIMIT $limit"
		params["limit"] = limit
	}

	res, err := c.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return nil, storage.Wrap("list candidates", err)
	}

	out := make([]*staffing.Candidate, 0, len(res.Records))
	for _, rec := range res.Records {
		candidate, err := c.candidate(rec)
		if err != nil {
			c.logger.Warn("Skipping undecodable candidate", logger.Candidate(toString(rec["id"])), zap.Error(err))
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

func (c Candidates) GetByID(ctx context.Context, id string) (*staffing.Candidate, error) {
	res, err := c.client.ExecuteRead(ctx, getCandidateQuery, map[string]any{"id": id})
	if err != nil {
		return nil, storage.Wrap("get candidate", err)
	}
	if len(res.Records) == 0 {
		return nil, staffing.ErrNotFound
	}
	return c.candidate(res.Records[0])
}

func (c Candidates) candidate(rec Record) (*staffing.Candidate, error) {
	id := toString(rec["id"])
	doc, err := document(rec, id)
	if err != nil {
		return nil, err
	}
	candidate, defaulted, err := staffing.DecodeCandidate(doc)
	if err != nil {
		return nil, fmt.Errorf("decode candidate %s: %w", id, err)
	}
	if len(defaulted) > 0 {
		c.logger.Debug("Candidate fields defaulted", logger.Candidate(id), zap.Strings("fields", defaulted))
	}
	return candidate, nil
}

func (j Jobs) Put(ctx context.Context, job *staffing.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	required := make([]string, 0, len(job.Requirements))
	for _, cat := range job.RequiredCategories() {
		required = append(required, string(cat))
	}

	_, err = j.client.ExecuteWrite(ctx, upsertJobQuery, map[string]any{
		"id":          job.ID,
		"employer_id": job.EmployerID,
		"helper_type": job.HelperType,
		"document":    string(doc),
		"required":    required,
	})
	return storage.Wrap("put job", err)
}

func (j Jobs) GetByID(ctx context.Context, id string) (*staffing.Job, error) {
	res, err := j.client.ExecuteRead(ctx, getJobQuery, map[string]any{"id": id})
	if err != nil {
		return nil, storage.Wrap("get job", err)
	}
	if len(res.Records) == 0 {
		return nil, staffing.ErrNotFound
	}

	doc, err := document(res.Records[0], id)
	if err != nil {
		return nil, err
	}
	job, defaulted, err := staffing.DecodeJob(doc)
	if err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	if len(defaulted) > 0 {
		j.logger.Debug("Job fields defaulted", zap.String(logger.FieldJobID, id), zap.Strings("fields", defaulted))
	}
	return job, nil
}

// document parses the JSON document property of a node. The node id wins
// over a missing id inside the document.
func document(rec Record, id string) (map[string]any, error) {
	raw := toString(rec["document"])
	if raw == "" {
		return nil, fmt.Errorf("node %s has no document", id)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse document of %s: %w", id, err)
	}
	if doc != nil && doc["id"] == nil {
		doc["id"] = id
	}
	return doc, nil
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
