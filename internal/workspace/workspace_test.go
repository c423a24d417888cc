package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_CreateAndCleanup(t *testing.T) {
	target := filepath.Join(t.TempDir(), "_site")
	mgr := NewManager(target)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	ws := mgr.GetPath()
	if filepath.Dir(ws) != filepath.Dir(target) {
		t.Errorf("staging dir %s should be a sibling of %s", ws, target)
	}
	if !strings.HasPrefix(filepath.Base(ws), "_site.staging-") {
		t.Errorf("unexpected staging name: %s", ws)
	}
	if err := mgr.Cleanup(); err != nil {
		t.Fatalf("Cleanup() failed: %v", err)
	}
	if _, err := os.Stat(ws); !os.IsNotExist(err) {
		t.Errorf("staging directory still exists after cleanup: %s", ws)
	}
	if err := mgr.Cleanup(); err != nil {
		t.Errorf("second Cleanup() should be a no-op, got %v", err)
	}
}

func TestManager_PromoteReplacesTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "_site")
	if err := os.MkdirAll(target, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "old.html"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(target)
	if err := mgr.Create(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mgr.GetPath(), "new.html"), []byte("new"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Promote(); err != nil {
		t.Fatalf("Promote() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "new.html")); err != nil {
		t.Errorf("new content missing after promote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "old.html")); !os.IsNotExist(err) {
		t.Errorf("old content should be gone after promote")
	}
	if _, err := os.Stat(target + ".prev"); !os.IsNotExist(err) {
		t.Errorf("backup directory should be removed after promote")
	}
	if mgr.GetPath() != "" {
		t.Errorf("GetPath() should be empty after promote")
	}
}

func TestManager_RemoveStale(t *testing.T) {
	target := filepath.Join(t.TempDir(), "_site")
	for _, dir := range []string{target + ".staging-123", target + ".prev"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	mgr := NewManager(target)
	if err := mgr.Create(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = mgr.Cleanup() }()

	removed, err := mgr.RemoveStale()
	if err != nil {
		t.Fatalf("RemoveStale() failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("RemoveStale() removed %d, want 2", removed)
	}
	if _, err := os.Stat(mgr.GetPath()); err != nil {
		t.Errorf("current staging directory must survive: %v", err)
	}
}

func TestManager_Owns(t *testing.T) {
	mgr := NewManager(filepath.FromSlash("/p/_site"))
	tests := []struct {
		path string
		want bool
	}{
		{"/p/_site", true},
		{"/p/_site/index.html", true},
		{"/p/_site.prev/index.html", true},
		{"/p/_site.staging-123/notes/readme/index.html", true},
		{"/p/_sites/index.html", false},
		{"/p/src/_site/index.md", false},
		{"/p/src/_site.staging-1", false},
		{"/p/notes/readme.md", false},
	}
	for _, tt := range tests {
		if got := mgr.Owns(filepath.FromSlash(tt.path)); got != tt.want {
			t.Errorf("Owns(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
