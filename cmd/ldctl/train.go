package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type trainOptions struct {
	model      modelFlags
	claimsPath string
	outDir     string
	keep       int
	seed       uint64
	asJSON     bool
	learn      learning.Options
}

func NewTrainCmd() *cobra.Command {
	o := &trainOptions{learn: learning.DefaultOptions()}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Learn weights from oracle claims and write a snapshot",
		Long: `Learn item and collection weights so that the distances named by the
claims file move into their target intervals. Training starts from the
default TF-IDF weights, or from --snapshot when given, and writes the
result as the next snapshot version into --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, o)
		},
	}
	o.model.register(cmd)
	cmd.Flags().StringVar(&o.claimsPath, "claims", "", "YAML claims file (required)")
	cmd.Flags().StringVar(&o.outDir, "out", "data/snapshots", "Directory to write the snapshot into")
	cmd.Flags().IntVar(&o.keep, "keep", 5, "Snapshots to retain in --out (0 keeps all)")
	cmd.Flags().Uint64Var(&o.seed, "seed", 0, "Shuffle seed (0 picks a random one)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().Float64Var(&o.learn.Ratio, "ratio", learning.DefaultRatio, "Share of each correction absorbed by item weights")
	cmd.Flags().Float64Var(&o.learn.ConvergenceSpeed, "speed", learning.DefaultConvergenceSpeed, "Effort applied to each claim")
	cmd.Flags().IntVar(&o.learn.Iterations, "iterations", learning.DefaultIterations, "Number of epochs")
	cmd.Flags().BoolVar(&o.learn.FinishAtFullEffort, "finish-full", false, "Run the last epoch at full effort")
	_ = cmd.MarkFlagRequired("claims")
	return cmd
}

func runTrain(cmd *cobra.Command, o *trainOptions) error {
	model, version, err := o.model.load()
	if err != nil {
		return err
	}
	claims, err := claim.LoadFile(o.claimsPath)
	if err != nil {
		return err
	}

	var opts []learning.Option
	if o.seed != 0 {
		opts = append(opts, learning.WithRand(learning.NewRand(o.seed)))
	}
	learner := learning.New(model, opts...)
	before := learner.Residual(claims)
	report, err := learner.Learn(claims, o.learn)
	if err != nil {
		return err
	}

	snap := snapshot.Snapshot{
		Version:           version + 1,
		CreatedAt:         time.Now().UTC(),
		ItemWeights:       learner.ItemWeights(),
		CollectionWeights: learner.CollectionWeights(),
		Residual:          report.FinalResidual(),
	}
	path, err := snapshot.NewWriter(o.outDir, o.keep).Write(snap)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"snapshot":         path,
			"version":          snap.Version,
			"initial_residual": before,
			"report":           report,
		})
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPOCH\tEFFORT\tAPPLIED\tSKIPPED\tRESIDUAL")
	for _, e := range report.Epochs {
		fmt.Fprintf(tw, "%d\t%.3g\t%d\t%d\t%.6f\n", e.Epoch, e.Effort, e.Applied, e.Skipped, e.Residual)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "residual %.6f -> %.6f\nwrote version %d to %s\n", before, report.FinalResidual(), snap.Version, path)
	return nil
}
