package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/explain/gemini"
	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/scoring"
	"github.com/spigell/helper-matcher/internal/secrets"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain how well a candidate fits a job",
	Run: func(cmd *cobra.Command, _ []string) {
		explain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().String("job", "", "job id")
	explainCmd.Flags().String("candidate", "", "candidate id")
	explainCmd.Flags().String("employer", "", "employer to personalize for (without it static rules apply and nothing is personalized)")
	explainCmd.MarkFlagRequired("job")
	explainCmd.MarkFlagRequired("candidate")
}

type explanation struct {
	Result    *scoring.Result `json:"result"`
	Narrative string          `json:"narrative"`
}

func explain(cmd *cobra.Command) {
	ctx := context.Background()
	a := setup(ctx)
	defer a.close()

	jobID, _ := cmd.Flags().GetString("job")
	candidateID, _ := cmd.Flags().GetString("candidate")
	employerID, _ := cmd.Flags().GetString("employer")
	log := logger.WithMatchFields(a.logger, employerID, jobID).With(logger.Candidate(candidateID))

	res, err := a.service.ScoreCandidate(ctx, jobID, candidateID, employerID)
	if err != nil {
		log.Fatal("scoring the candidate", zap.Error(err))
	}
	out := explanation{Result: res, Narrative: res.Explanation}

	narrator, err := a.newNarrator(ctx)
	switch {
	case errors.Is(err, secrets.ErrNotConfigured):
		log.Warn("no gemini api key, using score explanation")
	case err != nil:
		log.Warn("narratives disabled, using score explanation", zap.Error(err))
	}
	if narrator != nil {
		job, err := a.stores.Jobs.GetByID(ctx, jobID)
		if err != nil {
			log.Fatal("loading the job", zap.Error(err))
		}
		candidate, err := a.stores.Candidates.GetByID(ctx, candidateID)
		if err != nil {
			log.Fatal("loading the candidate", zap.Error(err))
		}
		out.Narrative = narrator.Explain(ctx, candidate, job, res)
	}

	if err := printJSON(out); err != nil {
		log.Fatal("printing result", zap.Error(err))
	}
}

// newNarrator returns nil without error when narratives are switched off.
func (a *application) newNarrator(ctx context.Context) (*gemini.Narrator, error) {
	cfg := a.config.AI
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "gemini":
	default:
		a.logger.Warn("unsupported ai provider", zap.String("provider", provider))
		return nil, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini, a.logger)
	if err != nil {
		return nil, err
	}
	return gemini.NewNarrator(generator, a.logger, cfg.Gemini.MaxLogLen, cfg.Tone), nil
}
