// Package personalization learns, per employer, which candidates that
// employer tends to act on and blends that preference into match scores.
package personalization

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrModelUnavailable         = errors.New("personalization model unavailable")
	ErrTrainingInProgress       = errors.New("training already in progress")
)

// InsufficientDataError reports how many usable decisions were found.
type InsufficientDataError struct {
	EmployerID string
	Have       int
	Need       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: employer %s has %d usable decisions, need %d",
		ErrInsufficientTrainingData, e.EmployerID, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientTrainingData
}

// Model is the trained predictor of one employer with its metadata.
type Model struct {
	EmployerID    string    `json:"employer_id"`
	Version       int64     `json:"version"`
	LayoutVersion int       `json:"layout_version"`
	FeatureNames  []string  `json:"feature_names"`
	Network       *Network  `json:"network"`
	Metrics       Metrics   `json:"metrics"`
	TrainedAt     time.Time `json:"trained_at"`
}

// Predict scores a training vector.
func (m *Model) Predict(vector []float64) (float64, error) {
	if m == nil || m.Network == nil {
		return 0, ErrModelUnavailable
	}
	return m.Network.Predict(vector)
}

// Store persists models. Save must never leave a half-written model visible:
// readers see either the previous model or the new one.
type Store interface {
	// Load returns the current model, or nil without error when none exists.
	Load(ctx context.Context, employerID string) (*Model, error)
	Save(ctx context.Context, model *Model) error
}

// TrainingOutcome is returned by a successful training run.
type TrainingOutcome struct {
	EmployerID    string        `json:"employer_id"`
	SampleCount   int           `json:"sample_count"`
	FinalLoss     float64       `json:"final_loss"`
	FinalAccuracy float64       `json:"final_accuracy"`
	Version       int64         `json:"version"`
	Duration      time.Duration `json:"duration"`
}
