package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/logger"
	"github.com/spigell/helper-matcher/internal/personalization"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the personalization model of one employer",
	Run: func(cmd *cobra.Command, _ []string) {
		train(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("employer", "", "employer to train a model for")
	trainCmd.MarkFlagRequired("employer")
}

func train(cmd *cobra.Command) {
	ctx := context.Background()
	a := setup(ctx)
	defer a.close()

	employerID, _ := cmd.Flags().GetString("employer")
	log := logger.WithMatchFields(a.logger, employerID, "")

	outcome, err := a.service.TrainPersonalizationModel(ctx, employerID)
	switch {
	case err == nil:
	case errors.Is(err, personalization.ErrInsufficientTrainingData):
		log.Warn("not enough decisions to train a model", zap.Error(err))
		return
	default:
		log.Fatal("training a model", zap.Error(err))
	}

	if err := printJSON(outcome); err != nil {
		log.Fatal("printing result", zap.Error(err))
	}
}
