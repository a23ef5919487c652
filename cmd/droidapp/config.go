package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"droidshell"
)

// configName is looked up in the app's files directory.
const configName = "droidshell.yaml"

// appConfig builds the configuration for an app process. gomobile points
// TMPDIR at the app cache directory; the files directory is its sibling.
// Shared storage comes from EXTERNAL_STORAGE.
func appConfig(getenv func(string) string, tmpDir string) (droidshell.Config, error) {
	filesDir := filepath.Join(filepath.Dir(tmpDir), "files")

	cfg := droidshell.DefaultConfig()
	path := filepath.Join(filesDir, configName)
	loaded, err := droidshell.LoadConfigFile(path)
	switch {
	case err == nil:
		cfg = loaded
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, err
	}

	if root := getenv("EXTERNAL_STORAGE"); root != "" {
		cfg.Paths.StorageRoot = root
	}
	cfg.Paths.FilesDir = filesDir
	cfg.Paths.InternalSaveDir = filepath.Join(filesDir, "saves")

	// No evdev access or desktop sockets inside an app sandbox.
	cfg.Input.Devices = nil
	cfg.IPC.Enabled = false

	return cfg, cfg.Validate()
}

func loadAppConfig() (droidshell.Config, error) {
	return appConfig(os.Getenv, os.TempDir())
}
