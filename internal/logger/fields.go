package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldEmployerID  = "employer_id"
	FieldJobID       = "job_id"
	FieldCandidateID = "candidate_id"
	FieldRule        = "rule"
	// FieldProvider is the structured log field key for the narration provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the narration model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MatchFields returns the fields identifying a matching request. Empty ids are
// dropped so partial requests (training has no job) stay compact.
func MatchFields(employerID, jobID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldEmployerID, Value: employerID},
		StringField{Key: FieldJobID, Value: jobID},
	)
}

// WithMatchFields attaches MatchFields to the provided logger.
func WithMatchFields(logger *zap.Logger, employerID, jobID string) *zap.Logger {
	return WithFields(logger, MatchFields(employerID, jobID)...)
}

// Candidate returns the candidate id field.
func Candidate(id string) zap.Field {
	return zap.String(FieldCandidateID, id)
}

// Rule returns the compensation rule field.
func Rule(name string) zap.Field {
	return zap.String(FieldRule, name)
}

// ProviderFields returns the fields describing the narration provider and model.
func ProviderFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
