// Package gemini turns a scoring result into a short narrative for the
// employer using the Gemini API. The scorer's own explanation is the
// fallback whenever the model cannot be reached.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/scoring"
	"github.com/spigell/helper-matcher/internal/staffing"
	"github.com/spigell/helper-matcher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed system.md
var systemPrompt string

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	defaultTone         = "Friendly"
	defaultSentences    = 4
)

type Narrator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	tone      string
}

func NewNarrator(generator contentGenerator, lg *zap.Logger, maxLogLength int, tone string) *Narrator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if tone = strings.TrimSpace(tone); tone == "" {
		tone = defaultTone
	}
	return &Narrator{
		generator: generator,
		logger:    logger.WithFields(lg, logger.ProviderFields("gemini", generator.Model())...),
		maxLogLen: maxLogLength,
		tone:      tone,
	}
}

// Narrate asks the model for a narrative of res.
func (n *Narrator) Narrate(ctx context.Context, candidate *staffing.Candidate, job *staffing.Job, res *scoring.Result) (string, error) {
	if candidate == nil || job == nil || res == nil {
		return "", fmt.Errorf("candidate, job and result are required")
	}

	prompt, err := n.buildPrompt(candidate, job, res)
	if err != nil {
		return "", err
	}

	log := logger.WithMatchFields(n.logger, job.EmployerID, job.ID).With(logger.Candidate(candidate.ID))
	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, n.maxLogLen)),
	)

	raw, err := n.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return "", err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, n.maxLogLen)),
	)
	return stripFences(raw), nil
}

// Explain returns the model narrative, or the scorer's explanation when the
// model fails.
func (n *Narrator) Explain(ctx context.Context, candidate *staffing.Candidate, job *staffing.Job, res *scoring.Result) string {
	text, err := n.Narrate(ctx, candidate, job, res)
	if err != nil {
		n.logger.Warn("Narrative unavailable, using score explanation", logger.Candidate(res.CandidateID), zap.Error(err))
		return res.Explanation
	}
	return text
}

func (n *Narrator) buildPrompt(candidate *staffing.Candidate, job *staffing.Job, res *scoring.Result) (string, error) {
	// names never leave the service
	anonymous := *candidate
	anonymous.Name = ""

	candidateJSON, err := json.MarshalIndent(anonymous, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate payload: %w", err)
	}
	jobJSON, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}
	resultJSON, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result payload: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nJob:\n{{JOB_JSON}}\n\nScore:\n{{RESULT_JSON}}"
	}
	return strings.NewReplacer(
		"{{TONE}}", n.tone,
		"{{MAX_SENTENCES}}", strconv.Itoa(defaultSentences),
		"{{CANDIDATE_JSON}}", string(candidateJSON),
		"{{JOB_JSON}}", string(jobJSON),
		"{{RESULT_JSON}}", string(resultJSON),
	).Replace(template), nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```markdown")
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
