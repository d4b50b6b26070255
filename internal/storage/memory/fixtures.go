package memory

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/staffing"
)

// Fixtures are candidate and job stores filled from a document file.
type Fixtures struct {
	Candidates *Candidates
	Jobs       *Jobs
}

type fixtureFile struct {
	Candidates []map[string]any `yaml:"candidates"`
	Jobs       []map[string]any `yaml:"jobs"`
}

// LoadFixtures reads a YAML (or JSON) file with top-level candidates and jobs
// lists. Documents go through the same loose decoding as stored records:
// malformed fields fall back to defaults and documents without an id are
// skipped with a warning.
func LoadFixtures(path string, lg *zap.Logger) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data, lg)
}

func ParseFixtures(data []byte, lg *zap.Logger) (*Fixtures, error) {
	log := logger.WithFields(lg)

	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	out := &Fixtures{Candidates: NewCandidates(), Jobs: NewJobs()}

	for i, raw := range file.Candidates {
		candidate, defaulted, err := staffing.DecodeCandidate(raw)
		if err != nil {
			log.Warn("Skipping candidate fixture", zap.Int("index", i), zap.Error(err))
			continue
		}
		if len(defaulted) > 0 {
			log.Debug("Candidate fields defaulted", logger.Candidate(candidate.ID), zap.Strings("fields", defaulted))
		}
		out.Candidates.Put(candidate)
	}

	for i, raw := range file.Jobs {
		job, defaulted, err := staffing.DecodeJob(raw)
		if err != nil {
			log.Warn("Skipping job fixture", zap.Int("index", i), zap.Error(err))
			continue
		}
		if len(defaulted) > 0 {
			log.Debug("Job fields defaulted", zap.String(logger.FieldJobID, job.ID), zap.Strings("fields", defaulted))
		}
		out.Jobs.Put(job)
	}

	log.Info("Fixtures loaded",
		zap.Int("candidates", out.Candidates.Len()),
		zap.Int("jobs", out.Jobs.Len()),
	)
	return out, nil
}
