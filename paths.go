package droidshell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultConfigName is the engine config file kept in the private files dir.
const DefaultConfigName = "scummvmrc"

// PathOptions locates the directories the engine needs.
type PathOptions struct {
	// StorageRoot is the shared storage the games live on.
	StorageRoot string

	// FilesDir is the private directory holding the engine config.
	FilesDir string

	// InternalSaveDir is used when saves cannot be kept on StorageRoot.
	InternalSaveDir string

	// ConfigName defaults to DefaultConfigName.
	ConfigName string
}

// ResolvedPaths are the concrete locations handed to the engine.
type ResolvedPaths struct {
	ConfigFile  string
	StorageRoot string
	SaveDir     string

	// SaveFallback is set when SaveDir is the internal directory.
	SaveFallback bool
}

// ResolvePaths checks the storage root, creates the save directory and picks
// the config file location. An unreadable storage root yields
// ErrStorageUnavailable.
func ResolvePaths(opts PathOptions, logger *slog.Logger) (ResolvedPaths, error) {
	logger = orDiscard(logger)

	root := ExpandPath(opts.StorageRoot)
	if err := checkReadableDir(root); err != nil {
		return ResolvedPaths{}, fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, root, err)
	}

	filesDir := ExpandPath(opts.FilesDir)
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		logger.Warn("cannot create files dir", "dir", filesDir, "error", err)
	}

	name := opts.ConfigName
	if name == "" {
		name = DefaultConfigName
	}

	out := ResolvedPaths{
		ConfigFile:  filepath.Join(filesDir, name),
		StorageRoot: root,
		SaveDir:     filepath.Join(root, "ScummVM", "Saves") + string(filepath.Separator),
	}

	_ = os.MkdirAll(out.SaveDir, 0o755)
	if !isDir(out.SaveDir) {
		internal := ExpandPath(opts.InternalSaveDir)
		if err := os.MkdirAll(internal, 0o755); err != nil {
			logger.Warn("cannot create internal save dir", "dir", internal, "error", err)
		}
		logger.Info("save dir not usable on storage, using internal dir", "wanted", out.SaveDir, "dir", internal)
		out.SaveDir = internal
		out.SaveFallback = true
	}

	return out, nil
}

// EngineArgs builds the engine command line.
func (p ResolvedPaths) EngineArgs() []string {
	return []string{
		"ScummVM",
		"--config=" + p.ConfigFile,
		"--path=" + p.StorageRoot,
		"--savepath=" + p.SaveDir,
	}
}

func checkReadableDir(dir string) error {
	if dir == "" {
		return errors.New("no path")
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}
