package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/helper-matcher/internal/scheduler"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Retrain every employer model on a schedule until interrupted",
	Run: func(cmd *cobra.Command, _ []string) {
		retrain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(retrainCmd)

	retrainCmd.Flags().Bool("now", false, "run a sweep immediately on start")
	retrainCmd.Flags().Bool("once", false, "run a single sweep and exit")
}

func retrain(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := setup(ctx)
	defer a.close()

	retrainer := a.service.Retrainer()
	sweep := func(ctx context.Context) {
		summary := retrainer.RetrainAll(ctx)
		a.logger.Info("retraining sweep finished",
			zap.Int("employers", summary.Employers),
			zap.Int("trained", summary.Trained),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)
	}

	if once, _ := cmd.Flags().GetBool("once"); once {
		sweep(ctx)
		return
	}

	var opts []scheduler.Option
	if now, _ := cmd.Flags().GetBool("now"); now {
		opts = append(opts, scheduler.WithImmediateRun())
	}
	sched := scheduler.New(a.logger, opts...)

	spec := a.config.Matching.Personalization.Schedule
	if err := sched.Add("retrain-models", spec, sweep); err != nil {
		a.logger.Fatal("scheduling retraining", zap.Error(err))
	}
	if err := sched.Start(ctx); err != nil {
		a.logger.Fatal("starting the scheduler", zap.Error(err))
	}
	a.logger.Info("waiting for the next retraining", zap.String("schedule", spec))

	<-ctx.Done()
	a.logger.Info("shutting down")
	sched.Stop()
}
