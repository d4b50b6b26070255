package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank the best candidates for a job",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "job id to rank candidates for")
	matchCmd.Flags().IntP("limit", "n", 0, "how many candidates to return (default from pipeline.default-limit)")
	matchCmd.Flags().String("employer", "", "employer to personalize for (without it static rules apply and nothing is personalized)")
	matchCmd.MarkFlagRequired("job")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()
	a := setup(ctx)
	defer a.close()

	jobID, _ := cmd.Flags().GetString("job")
	limit, _ := cmd.Flags().GetInt("limit")
	employerID, _ := cmd.Flags().GetString("employer")

	log := logger.WithMatchFields(a.logger, employerID, jobID)
	log.Info("ranking candidates", zap.Int("limit", limit))

	ranked, err := a.service.GetTopCandidates(ctx, jobID, limit, employerID)
	if err != nil {
		log.Fatal("ranking candidates", zap.Error(err))
	}

	log.Info("ranking done",
		zap.Int("matches", len(ranked.Matches)),
		zap.Int("total", ranked.TotalMatches),
		zap.Bool("personalized", ranked.ScoringInfo.Personalized),
		zap.Bool("cached", ranked.ScoringInfo.Cached),
	)
	if err := printJSON(ranked); err != nil {
		log.Fatal("printing result", zap.Error(err))
	}
}
