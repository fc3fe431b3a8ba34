package snapshot

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/goccy/go-json"
)

// Read loads and verifies a snapshot file.
func Read(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return Snapshot{}, fmt.Errorf("%s: %w: %d bytes", path, apperrors.ErrCorruptSnapshot, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicBytes {
		return Snapshot{}, fmt.Errorf("%s: %w: bad magic bytes %x", path, apperrors.ErrCorruptSnapshot, magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != FormatVersion {
		return Snapshot{}, fmt.Errorf("%s: %w: unsupported format version %d", path, apperrors.ErrCorruptSnapshot, v)
	}
	bodySize := binary.LittleEndian.Uint64(data[24:32])
	if uint64(len(data)) != uint64(HeaderSize)+bodySize+uint64(FooterSize) {
		return Snapshot{}, fmt.Errorf("%s: %w: body size %d does not match file", path, apperrors.ErrCorruptSnapshot, bodySize)
	}
	body := data[HeaderSize : HeaderSize+int(bodySize)]
	footer := data[HeaderSize+int(bodySize):]
	if sum := binary.LittleEndian.Uint32(footer[0:4]); sum != crc32.ChecksumIEEE(body) {
		return Snapshot{}, fmt.Errorf("%s: %w: checksum mismatch", path, apperrors.ErrCorruptSnapshot)
	}

	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w: %v", path, apperrors.ErrCorruptSnapshot, err)
	}
	if s.Version != binary.LittleEndian.Uint64(data[8:16]) {
		return Snapshot{}, fmt.Errorf("%s: %w: header and body versions differ", path, apperrors.ErrCorruptSnapshot)
	}
	return s, nil
}

// Latest returns the newest readable snapshot of dir. Corrupt files are
// skipped; ErrNotFound is returned when none is usable.
func Latest(dir string) (Snapshot, string, error) {
	paths, err := List(dir)
	if err != nil {
		return Snapshot{}, "", err
	}
	for i := len(paths) - 1; i >= 0; i-- {
		s, err := Read(paths[i])
		if err == nil {
			return s, paths[i], nil
		}
	}
	return Snapshot{}, "", fmt.Errorf("no snapshot in %s: %w", dir, apperrors.ErrNotFound)
}
