package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/storage"
)

// Candidates and Jobs expose the profile halves of a Store under the method
// names the pipeline expects.
type Candidates struct{ *Store }

type Jobs struct{ *Store }

func (s *Store) Candidates() Candidates { return Candidates{s} }

func (s *Store) Jobs() Jobs { return Jobs{s} }

// ListByType returns candidates of a helper type in insertion order.
// Documents that cannot be decoded at all are logged and skipped.
func (c Candidates) ListByType(ctx context.Context, helperType string, limit int) ([]*staffing.Candidate, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, document FROM candidates
		 WHERE helper_type = $1
		 ORDER BY created_at, id
		 LIMIT $2`,
		helperType, limitArg(limit))
	if err != nil {
		return nil, storage.Wrap("list candidates", err)
	}
	defer rows.Close()

	var out []*staffing.Candidate
	for rows.Next() {
		var (
			id  string
			doc map[string]any
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, storage.Wrap("scan candidate", err)
		}
		candidate, err := c.decodeCandidate(id, doc)
		if err != nil {
			c.logger.Warn("Skipping undecodable candidate", logger.Candidate(id), zap.Error(err))
			continue
		}
		out = append(out, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("list candidates", err)
	}
	return out, nil
}

func (c Candidates) GetByID(ctx context.Context, id string) (*staffing.Candidate, error) {
	var doc map[string]any
	err := c.pool.QueryRow(ctx, `SELECT document FROM candidates WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, staffing.ErrNotFound
	}
	if err != nil {
		return nil, storage.Wrap("get candidate", err)
	}
	return c.decodeCandidate(id, doc)
}

// Put inserts or replaces a candidate profile.
func (c Candidates) Put(ctx context.Context, candidate *staffing.Candidate) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO candidates (id, helper_type, document)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET helper_type = EXCLUDED.helper_type, document = EXCLUDED.document, updated_at = now()`,
		candidate.ID, candidate.HelperType, candidate)
	return storage.Wrap("put candidate", err)
}

func (c Candidates) decodeCandidate(id string, doc map[string]any) (*staffing.Candidate, error) {
	if doc != nil && doc["id"] == nil {
		doc["id"] = id
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

func (j Jobs) GetByID(ctx context.Context, id string) (*staffing.Job, error) {
	var doc map[string]any
	err := j.pool.QueryRow(ctx, `SELECT document FROM jobs WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, staffing.ErrNotFound
	}
	if err != nil {
		return nil, storage.Wrap("get job", err)
	}

	if doc != nil && doc["id"] == nil {
		doc["id"] = id
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

// Put inserts or replaces a job posting.
func (j Jobs) Put(ctx context.Context, job *staffing.Job) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO jobs (id, employer_id, document)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET employer_id = EXCLUDED.employer_id, document = EXCLUDED.document, updated_at = now()`,
		job.ID, job.EmployerID, job)
	return storage.Wrap("put job", err)
}
