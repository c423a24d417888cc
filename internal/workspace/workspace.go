package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Manager owns one staging directory for the lifetime of a build.
type Manager struct {
	target  string // final output directory
	tempDir string
}

// NewManager creates a staging manager for the given output directory.
func NewManager(target string) *Manager {
	return &Manager{target: filepath.Clean(target)}
}

// Create creates a uniquely named staging directory as a sibling of the target.
func (m *Manager) Create() error {
	parent := filepath.Dir(m.target)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("failed to create output parent directory: %w", err)
	}
	dir, err := os.MkdirTemp(parent, filepath.Base(m.target)+".staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	// MkdirTemp creates 0700; the promoted tree is served as a website.
	if err := os.Chmod(dir, 0o755); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("failed to set staging directory permissions: %w", err)
	}
	m.tempDir = dir
	slog.Debug("Created staging directory", logfields.Path(dir))
	return nil
}

// GetPath returns the path to the staging directory
func (m *Manager) GetPath() string {
	return m.tempDir
}

// Owns reports whether path lies in the target or in one of the staging or
// backup directories this manager creates next to it.
func (m *Manager) Owns(path string) bool {
	return IsBuildPath(m.target, path)
}

// IsBuildPath reports whether path is target, target.prev or a
// target.staging-* directory, or lies inside one of them.
func IsBuildPath(target, path string) bool {
	if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if path == target || strings.HasPrefix(path, target+string(filepath.Separator)) {
		return true
	}
	rel, err := filepath.Rel(filepath.Dir(target), path)
	if err != nil {
		return false
	}
	base := filepath.Base(target)
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return first == base+".prev" || strings.HasPrefix(first, base+".staging-")
}

// Cleanup removes the staging directory. It is a no-op after Promote.
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}
	dir := m.tempDir
	m.tempDir = "" // prevent double cleanup
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to cleanup staging directory: %w", err)
	}
	slog.Debug("Removed staging directory", logfields.Path(dir))
	return nil
}

// Promote replaces the target with the staging directory.
// Strategy:
//  1. Move existing target (if any) to target.prev, replacing an old backup.
//  2. Rename staging -> target.
//  3. Remove the backup.
func (m *Manager) Promote() error {
	if m.tempDir == "" {
		return fmt.Errorf("no staging directory initialized")
	}
	if _, err := os.Stat(m.tempDir); err != nil {
		return fmt.Errorf("staging directory missing: %w", err)
	}

	prev := m.target + ".prev"
	if _, err := os.Stat(prev); err == nil {
		for i := 0; i < 3; i++ {
			if err := os.RemoveAll(prev); err == nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
	hadPrevious := false
	if _, err := os.Stat(m.target); err == nil {
		if err := os.Rename(m.target, prev); err != nil {
			return fmt.Errorf("backup existing output: %w", err)
		}
		hadPrevious = true
	}
	if err := os.Rename(m.tempDir, m.target); err != nil {
		if hadPrevious {
			_ = os.Rename(prev, m.target)
		}
		return fmt.Errorf("promote staging: %w", err)
	}
	m.tempDir = ""
	if hadPrevious {
		if err := os.RemoveAll(prev); err != nil {
			slog.Warn("Failed to remove previous output", logfields.Path(prev), logfields.Error(err))
		}
	}
	slog.Debug("Promoted staging directory", logfields.Path(m.target))
	return nil
}

// RemoveStale deletes staging directories and backups left next to the
// target by interrupted builds. The current staging directory is kept.
func (m *Manager) RemoveStale() (int, error) {
	matches, err := filepath.Glob(m.target + ".staging-*")
	if err != nil {
		return 0, fmt.Errorf("find stale staging directories: %w", err)
	}
	if _, err := os.Stat(m.target + ".prev"); err == nil {
		matches = append(matches, m.target+".prev")
	}
	removed := 0
	for _, dir := range matches {
		if dir == m.tempDir {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("remove stale directory %s: %w", dir, err)
		}
		removed++
	}
	return removed, nil
}
