package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/helper-matcher/internal/features"
)

// Actual version and commit can be specified in build command.
var (
	version = "unknown"
	commit  = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the feature layout stored models are trained on",
	Run: func(_ *cobra.Command, _ []string) {
		if commit != "" {
			fmt.Printf("%s version: %s (%s)\n", app, version, commit)
		} else {
			fmt.Printf("%s version: %s\n", app, version)
		}
		fmt.Printf("feature layout: %d (%d features, %d for training)\n",
			features.LayoutVersion, features.Dimension, features.TrainingDimension)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
