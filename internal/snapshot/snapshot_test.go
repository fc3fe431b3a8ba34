package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(version uint64) Snapshot {
	return Snapshot{
		Version:           version,
		CreatedAt:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ItemWeights:       map[string]float64{"a": 0.25, "b": 0.75},
		CollectionWeights: map[string]float64{"aa": 0.5, "ab": 0.5},
		Residual:          0.01,
	}
}

func TestWriteRead(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir, 0).Write(sample(7))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName(7)), path)

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Version)
	assert.True(t, got.CreatedAt.Equal(sample(7).CreatedAt))
	assert.Equal(t, sample(7).ItemWeights, got.ItemWeights)
	assert.Equal(t, sample(7).CollectionWeights, got.CollectionWeights)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestReadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir, 0).Write(sample(1))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[HeaderSize+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, flipped, 0o644))
	_, err = Read(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptSnapshot)

	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o644))
	_, err = Read(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptSnapshot)

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 0
	require.NoError(t, os.WriteFile(path, badMagic, 0o644))
	_, err = Read(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptSnapshot)
}

func TestLatestSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 0)
	for _, v := range []uint64{1, 2, 10} {
		_, err := w.Write(sample(v))
		require.NoError(t, err)
	}
	s, path, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), s.Version)
	assert.Equal(t, filepath.Join(dir, FileName(10)), path)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	s, _, err = Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.Version)
}

func TestLatestEmptyDir(t *testing.T) {
	_, _, err := Latest(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestWriterPrunes(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, 2)
	for v := uint64(1); v <= 4; v++ {
		_, err := w.Write(sample(v))
		require.NoError(t, err)
	}
	paths, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, FileName(3)), filepath.Join(dir, FileName(4))}, paths)
}
