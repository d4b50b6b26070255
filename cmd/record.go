package cmd

import (
	"context"
	"errors"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/logger"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an employer decision on a candidate",
	Run: func(cmd *cobra.Command, _ []string) {
		record(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().String("employer", "", "employer who made the decision")
	recordCmd.Flags().String("candidate", "", "candidate id")
	recordCmd.Flags().String("job", "", "job id")
	recordCmd.Flags().StringP("action", "a", "", "one of viewed, clicked, contacted, hired, rejected (asked interactively when omitted)")
	recordCmd.MarkFlagRequired("employer")
	recordCmd.MarkFlagRequired("candidate")
	recordCmd.MarkFlagRequired("job")
}

func record(cmd *cobra.Command) {
	ctx := context.Background()
	a := setup(ctx)
	defer a.close()

	employerID, _ := cmd.Flags().GetString("employer")
	candidateID, _ := cmd.Flags().GetString("candidate")
	jobID, _ := cmd.Flags().GetString("job")
	action, _ := cmd.Flags().GetString("action")

	log := logger.WithMatchFields(a.logger, employerID, jobID).With(logger.Candidate(candidateID))

	if action == "" {
		selected, err := selectAction()
		if err != nil {
			log.Fatal("selecting an action", zap.Error(err))
		}
		action = selected
	}

	rec, err := a.service.RecordDecision(ctx, employerID, candidateID, jobID, action)
	if err != nil {
		if errors.Is(err, decisions.ErrInvalidAction) {
			log.Fatal("recording a decision", zap.Error(err), zap.Any("valid actions", decisions.Actions))
		}
		log.Fatal("recording a decision", zap.Error(err))
	}

	if a.config.Storage.History == "memory" {
		log.Warn("history storage is in memory, the decision is lost on exit")
	}
	log.Info("decision recorded", zap.String("id", rec.ID), zap.String("action", string(rec.Action)))
}

func selectAction() (string, error) {
	items := make([]string, 0, len(decisions.Actions))
	for _, action := range decisions.Actions {
		items = append(items, string(action))
	}

	prompt := promptui.Select{
		Label: "Employer action",
		Items: items,
	}
	_, result, err := prompt.Run()
	return result, err
}
