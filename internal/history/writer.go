package history

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/holdemtables/internal/game"
)

// Writer stores one .phh file per hand under dir/<table id>/.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating hand history directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Path returns where the hand is stored.
func (w *Writer) Path(tableID, handID string) string {
	return filepath.Join(w.dir, tableID, handID+".phh")
}

// RecordHand converts and writes a finished hand.
func (w *Writer) RecordHand(t *game.Table, round *game.Round, at time.Time) error {
	hand, err := FromRound(t, round, at)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return err
	}

	path := w.Path(t.ID, round.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating table directory: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

// writeFileAtomic writes to a temporary file in the same directory and
// renames it into place, so readers see either no file or all of it.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("failed to write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := tmp.Chmod(perm); err != nil {
		return fail(fmt.Errorf("failed to set permissions: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
