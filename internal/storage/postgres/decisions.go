package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/personalization"
	"github.com/spigell/helper-matcher/internal/storage"
)

func (s *Store) Append(ctx context.Context, r decisions.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO decisions (id, employer_id, candidate_id, job_id, action, decided_at, candidate, job)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.EmployerID, r.CandidateID, r.JobID, string(r.Action), r.Timestamp, r.Candidate, r.Job)
	return storage.Wrap("append decision", err)
}

// QueryByEmployer returns records in append order. With a positive limit only
// the most recent limit records are returned.
func (s *Store) QueryByEmployer(ctx context.Context, employerID string, limit int) ([]decisions.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, employer_id, candidate_id, job_id, action, decided_at, candidate, job
		 FROM decisions
		 WHERE employer_id = $1
		 ORDER BY seq DESC
		 LIMIT $2`,
		employerID, limitArg(limit))
	if err != nil {
		return nil, storage.Wrap("query decisions", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (decisions.Record, error) {
		var (
			r      decisions.Record
			action string
		)
		err := row.Scan(&r.ID, &r.EmployerID, &r.CandidateID, &r.JobID, &action, &r.Timestamp, &r.Candidate, &r.Job)
		r.Action = decisions.Action(action)
		r.Timestamp = r.Timestamp.UTC()
		return r, err
	})
	if err != nil {
		return nil, storage.Wrap("scan decisions", err)
	}
	slices.Reverse(records)
	return records, nil
}

func (s *Store) Employers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT employer_id FROM decisions ORDER BY employer_id`)
	if err != nil {
		return nil, storage.Wrap("list employers", err)
	}
	employers, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storage.Wrap("scan employers", err)
	}
	return employers, nil
}

// Load returns the model the head row points at, or nil when the employer
// has none.
func (s *Store) Load(ctx context.Context, employerID string) (*personalization.Model, error) {
	var model personalization.Model
	err := s.pool.QueryRow(ctx,
		`SELECT m.document
		 FROM personalization_model_heads h
		 JOIN personalization_models m ON m.employer_id = h.employer_id AND m.version = h.version
		 WHERE h.employer_id = $1`,
		employerID).Scan(&model)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Wrap("load model", err)
	}
	return &model, nil
}

// Save writes the model as a new version and moves the head to it in one
// transaction, so readers see either the old or the new model.
func (s *Store) Save(ctx context.Context, model *personalization.Model) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.Wrap("begin model save", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	var version int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM personalization_models WHERE employer_id = $1`,
		model.EmployerID).Scan(&version)
	if err != nil {
		return storage.Wrap("next model version", err)
	}

	stored := *model
	stored.Version = version
	if _, err := tx.Exec(ctx,
		`INSERT INTO personalization_models (employer_id, version, document, trained_at)
		 VALUES ($1, $2, $3, $4)`,
		stored.EmployerID, stored.Version, &stored, stored.TrainedAt); err != nil {
		return storage.Wrap("insert model", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO personalization_model_heads (employer_id, version)
		 VALUES ($1, $2)
		 ON CONFLICT (employer_id) DO UPDATE SET version = EXCLUDED.version`,
		stored.EmployerID, stored.Version); err != nil {
		return storage.Wrap("move model head", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storage.Wrap(fmt.Sprintf("commit model %d", version), err)
	}
	model.Version = version
	return nil
}
