package personalization

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
)

// RetrainSummary counts the outcome of one retraining sweep.
type RetrainSummary struct {
	Employers int `json:"employers"`
	Trained   int `json:"trained"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Retrainer retrains every employer with decisions. It is meant to be run by
// the scheduler.
type Retrainer struct {
	service *Service
	logger  *zap.Logger
}

func NewRetrainer(service *Service, lg *zap.Logger) *Retrainer {
	return &Retrainer{service: service, logger: logger.WithFields(lg)}
}

// RetrainAll trains each employer in turn. Employers without enough data or
// with a training already running are skipped quietly; other failures are
// logged and the sweep continues.
func (r *Retrainer) RetrainAll(ctx context.Context) RetrainSummary {
	var summary RetrainSummary

	employers, err := r.service.history.Employers(ctx)
	if err != nil {
		r.logger.Error("Failed to list employers for retraining", zap.Error(err))
		return summary
	}
	summary.Employers = len(employers)

	for _, employerID := range employers {
		if ctx.Err() != nil {
			break
		}

		_, err := r.service.Train(ctx, employerID)
		switch {
		case err == nil:
			summary.Trained++
		case errors.Is(err, ErrInsufficientTrainingData), errors.Is(err, ErrTrainingInProgress):
			summary.Skipped++
			r.logger.Debug("Retraining skipped", append(logger.MatchFields(employerID, ""), zap.Error(err))...)
		default:
			summary.Failed++
			r.logger.Warn("Retraining failed", append(logger.MatchFields(employerID, ""), zap.Error(err))...)
		}
	}

	r.logger.Info("Retraining sweep finished",
		zap.Int("employers", summary.Employers),
		zap.Int("trained", summary.Trained),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary
}
