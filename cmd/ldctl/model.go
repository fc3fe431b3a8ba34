package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/snapshot"
	"github.com/spf13/cobra"
)

// modelFlags are shared by every command that needs a model.
type modelFlags struct {
	corpusPath   string
	snapshotPath string
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.corpusPath, "corpus", "", "YAML corpus file (required)")
	cmd.Flags().StringVar(&f.snapshotPath, "snapshot", "", "Snapshot file, or directory holding snapshots, to load weights from")
	_ = cmd.MarkFlagRequired("corpus")
}

// load builds the model over the corpus with default weights, then applies
// the snapshot if one was given. The returned version is 0 without one.
func (f *modelFlags) load() (*distance.Model, uint64, error) {
	collections, err := corpus.LoadFile(f.corpusPath)
	if err != nil {
		return nil, 0, err
	}
	m, err := distance.New(collections, nil, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building model: %w", err)
	}
	if f.snapshotPath == "" {
		return m, 0, nil
	}
	snap, err := readSnapshot(f.snapshotPath)
	if err != nil {
		return nil, 0, err
	}
	if err := m.SetItemWeights(snap.ItemWeights); err != nil {
		return nil, 0, fmt.Errorf("applying snapshot item weights: %w", err)
	}
	if err := m.SetCollectionWeights(snap.CollectionWeights); err != nil {
		return nil, 0, fmt.Errorf("applying snapshot collection weights: %w", err)
	}
	return m, snap.Version, nil
}

func readSnapshot(path string) (snapshot.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("opening snapshot: %w", err)
	}
	if !info.IsDir() {
		return snapshot.Read(path)
	}
	snap, _, err := snapshot.Latest(path)
	return snap, err
}

func parseSides(args []string) ([]string, []string, error) {
	a, b := corpus.ParseIDList(args[0]), corpus.ParseIDList(args[1])
	if len(a) == 0 || len(b) == 0 {
		return nil, nil, errors.New("both sides need at least one collection id")
	}
	return a, b, nil
}
