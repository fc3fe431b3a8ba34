// Package snapshot persists learned weights to disk. A snapshot file is a
// fixed binary header, a JSON body and a CRC32 footer over the body, written
// to a temporary file and renamed into place.
package snapshot

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// MagicBytes identifies a weight snapshot file ("LDWS").
const (
	MagicBytes    uint32 = 0x4C445753
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 8
	Extension            = ".ldws"
)

// Snapshot is one persisted state of a model's weights.
type Snapshot struct {
	Version           uint64             `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	ItemWeights       map[string]float64 `json:"item_weights"`
	CollectionWeights map[string]float64 `json:"collection_weights"`
	Residual          float64            `json:"residual"`
}

// Writer writes snapshots into a directory and prunes old ones.
type Writer struct {
	dir    string
	keep   int
	logger *slog.Logger
}

// NewWriter returns a Writer that retains the newest keep snapshots. keep <= 0
// retains everything.
func NewWriter(dir string, keep int) *Writer {
	return &Writer{
		dir:    dir,
		keep:   keep,
		logger: slog.Default().With("component", "snapshot-writer"),
	}
}

func FileName(version uint64) string {
	return fmt.Sprintf("weights_%020d%s", version, Extension)
}

// Write atomically creates the snapshot file for s.Version and returns its
// path.
func (w *Writer) Write(s Snapshot) (string, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	finalPath := filepath.Join(w.dir, FileName(s.Version))
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(header[8:16], s.Version)
	binary.LittleEndian.PutUint64(header[16:24], uint64(s.CreatedAt.UnixNano()))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(body)))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(s.ItemWeights)))

	for _, part := range [][]byte{header, body, footer} {
		if _, err := f.Write(part); err != nil {
			os.Remove(tmpPath)
			return "", fmt.Errorf("writing snapshot: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing snapshot file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming snapshot file: %w", err)
	}

	w.logger.Info("snapshot written",
		"path", finalPath,
		"version", s.Version,
		"bytes", HeaderSize+len(body)+FooterSize,
	)
	if err := w.prune(); err != nil {
		w.logger.Warn("pruning snapshots failed", "error", err)
	}
	return finalPath, nil
}

func (w *Writer) prune() error {
	if w.keep <= 0 {
		return nil
	}
	paths, err := List(w.dir)
	if err != nil {
		return err
	}
	for len(paths) > w.keep {
		if err := os.Remove(paths[0]); err != nil {
			return fmt.Errorf("removing %s: %w", paths[0], err)
		}
		paths = paths[1:]
	}
	return nil
}

// List returns the snapshot files of dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
