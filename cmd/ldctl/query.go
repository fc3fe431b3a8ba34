package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func NewDistanceCmd() *cobra.Command {
	var (
		mf      modelFlags
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "distance <ids> <ids>",
		Short: "Print the distance between two comma-separated sets of collection ids",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b, err := parseSides(args)
			if err != nil {
				return err
			}
			model, _, err := mf.load()
			if err != nil {
				return err
			}
			v := model.VerboseDistance(a, b)
			if !verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", v.Distance)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "distance %.6f\nleft norm %.6f\nright norm %.6f\n",
				v.Distance, v.Left.Norm, v.Right.Norm)
			return nil
		},
	}
	mf.register(cmd)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Also print both vector norms")
	return cmd
}

func NewNearestCmd() *cobra.Command {
	var (
		mf    modelFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "nearest <ids>",
		Short: "Rank the corpus collections by distance to a set of collection ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _, err := parseSides([]string{args[0], args[0]})
			if err != nil {
				return err
			}
			model, _, err := mf.load()
			if err != nil {
				return err
			}
			for _, s := range model.Nearest(query, limit) {
				fmt.Fprintf(cmd.OutOrStdout(), "%.6f\t%s\n", s.Distance, s.ID)
			}
			return nil
		},
	}
	mf.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results (0 for all)")
	return cmd
}

func NewWeightsCmd() *cobra.Command {
	var (
		mf   modelFlags
		kind string
		top  int
	)
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Print item or collection weights, heaviest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _, err := mf.load()
			if err != nil {
				return err
			}
			var weights map[string]float64
			switch kind {
			case "items":
				weights = model.ItemWeights()
			case "collections":
				weights = model.CollectionWeights()
			default:
				return fmt.Errorf("unknown --kind %q (want items or collections)", kind)
			}
			keys := make([]string, 0, len(weights))
			for k := range weights {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				if weights[keys[i]] != weights[keys[j]] {
					return weights[keys[i]] > weights[keys[j]]
				}
				return keys[i] < keys[j]
			})
			if top > 0 && len(keys) > top {
				keys = keys[:top]
			}
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%.6f\t%s\n", weights[k], k)
			}
			return nil
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", "items", "Weights to print: items or collections")
	cmd.Flags().IntVar(&top, "top", 0, "Print only the heaviest N (0 for all)")
	return cmd
}
