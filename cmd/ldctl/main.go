package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/logger"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "ldctl",
		Short: "Train and query learning cosine distances offline",
		Long: `ldctl builds a weighted cosine distance over a corpus of collections,
refines its weights from oracle claims and queries the result.

Examples:
  ldctl train --corpus corpus.yaml --claims claims.yaml --out data/snapshots
  ldctl distance --corpus corpus.yaml --snapshot data/snapshots ab bbb,aa
  ldctl nearest --corpus corpus.yaml --limit 3 ab
  ldctl weights --corpus corpus.yaml --snapshot data/snapshots --kind items --top 10`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(NewTrainCmd())
	root.AddCommand(NewDistanceCmd())
	root.AddCommand(NewNearestCmd())
	root.AddCommand(NewWeightsCmd())
	return root
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
