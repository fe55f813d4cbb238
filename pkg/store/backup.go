package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// backupFile compresses src into dst with zstd. It reports false without
// error when src does not exist.
func backupFile(src, dst string) (bool, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	err = writeAtomic(dst, func(w io.Writer) error {
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		if _, err := io.Copy(enc, in); err != nil {
			enc.Close()
			return fmt.Errorf("failed to compress: %w", err)
		}
		return enc.Close()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadBackup decompresses the backup written before the last rewrite
func (m *Manager) ReadBackup(w io.Writer) error {
	f, err := os.Open(m.backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("failed to decompress backup: %w", err)
	}
	return nil
}
