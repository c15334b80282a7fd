package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// RotationConfig caps the size of the log file across invocations.
type RotationConfig struct {
	// MaxSizeMB is the size in megabytes above which the file is rotated
	// when the logger opens it. 0 disables rotation.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept as <file>.1..<file>.N.
	MaxBackups int
}

// DefaultRotationConfig returns the rotation settings used when the
// configuration does not override them.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSizeMB:  5,
		MaxBackups: 2,
	}
}

// openLogFile rotates path if it has outgrown cfg and opens it for appending.
// olx is short-lived, so rotation happens once per invocation rather than
// on every write.
func openLogFile(path string, cfg RotationConfig) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if needsRotation(path, cfg) {
		if err := rotate(path, cfg.MaxBackups); err != nil {
			return nil, err
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

func needsRotation(path string, cfg RotationConfig) bool {
	if cfg.MaxSizeMB <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() >= int64(cfg.MaxSizeMB)*1024*1024
}

// rotate shifts <path>.N-1 to <path>.N down to <path> -> <path>.1,
// dropping whatever falls off the end.
func rotate(path string, maxBackups int) error {
	if maxBackups <= 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to truncate log file: %w", err)
		}
		return nil
	}

	_ = os.Remove(backupPath(path, maxBackups))
	for i := maxBackups - 1; i >= 1; i-- {
		if _, err := os.Stat(backupPath(path, i)); err == nil {
			_ = os.Rename(backupPath(path, i), backupPath(path, i+1))
		}
	}

	if err := os.Rename(path, backupPath(path, 1)); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

func backupPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
