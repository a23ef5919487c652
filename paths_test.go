package droidshell

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePaths_SharedStorage(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "sdcard")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	p, err := ResolvePaths(PathOptions{
		StorageRoot:     root,
		FilesDir:        filepath.Join(dir, "files"),
		InternalSaveDir: filepath.Join(dir, "internal"),
	}, nil)
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}

	wantSave := filepath.Join(root, "ScummVM", "Saves") + string(filepath.Separator)
	if p.SaveDir != wantSave || p.SaveFallback {
		t.Errorf("save dir = %q (fallback %v), want %q", p.SaveDir, p.SaveFallback, wantSave)
	}
	if !isDir(p.SaveDir) {
		t.Errorf("save dir not created")
	}
	if !isDir(filepath.Join(dir, "files")) {
		t.Errorf("files dir not created")
	}

	args := p.EngineArgs()
	want := []string{
		"ScummVM",
		"--config=" + filepath.Join(dir, "files", DefaultConfigName),
		"--path=" + root,
		"--savepath=" + wantSave,
	}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestResolvePaths_FallsBackToInternalSaves(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "sdcard")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	// A file where the ScummVM directory should be blocks the save dir.
	if err := os.WriteFile(filepath.Join(root, "ScummVM"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	internal := filepath.Join(dir, "internal")
	p, err := ResolvePaths(PathOptions{
		StorageRoot:     root,
		FilesDir:        filepath.Join(dir, "files"),
		InternalSaveDir: internal,
	}, nil)
	if err != nil {
		t.Fatalf("ResolvePaths: %v", err)
	}
	if !p.SaveFallback || p.SaveDir != internal {
		t.Errorf("expected internal fallback, got %+v", p)
	}
	if !isDir(internal) {
		t.Errorf("internal save dir not created")
	}
}

func TestResolvePaths_StorageUnavailable(t *testing.T) {
	_, err := ResolvePaths(PathOptions{StorageRoot: filepath.Join(t.TempDir(), "absent")}, nil)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	if _, err := ResolvePaths(PathOptions{}, nil); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("empty root: expected ErrStorageUnavailable, got %v", err)
	}
}
