// Package paths resolves the configuration, input, output, and store
// directories used by vbranch.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "vbranch"

// CWD-relative defaults used when no override is active.
const (
	DefaultDataDirName = "."
	DefaultOutDirName  = "out"
)

// Environment variable names for directory overrides. The short forms are
// honored for compatibility with existing analysis scripts.
const (
	EnvConfigDir    = "VBRANCH_CONFIG_DIR"
	EnvDataDir      = "VBRANCH_DATA_DIR"
	EnvOutDir       = "VBRANCH_OUT_DIR"
	EnvStoreDir     = "VBRANCH_STORE_DIR"
	EnvDataDirShort = "DATA_DIR"
	EnvOutDirShort  = "OUT_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/vbranch (fallback ~/.config/vbranch)
// macOS:   ~/Library/Application Support/vbranch
// Windows: %APPDATA%/vbranch
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultStoreDir returns the platform-specific default directory for the run
// store.
//
// Linux:   $XDG_DATA_HOME/vbranch (fallback ~/.local/share/vbranch)
// macOS:   ~/Library/Application Support/vbranch/store
// Windows: %APPDATA%/vbranch/store
func DefaultStoreDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appName), nil
	}
	// Config and data share one root on macOS and Windows.
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "store"), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > VBRANCH_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the input directory following the precedence chain:
// flag > config.yaml value > VBRANCH_DATA_DIR > DATA_DIR > current directory.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	return resolve(flag, configYAMLValue, []string{EnvDataDir, EnvDataDirShort}, DefaultDataDirName)
}

// ResolveOutDir returns the output directory following the precedence chain:
// flag > config.yaml value > VBRANCH_OUT_DIR > OUT_DIR > ./out.
func ResolveOutDir(flag, configYAMLValue string) (string, error) {
	return resolve(flag, configYAMLValue, []string{EnvOutDir, EnvOutDirShort}, DefaultOutDirName)
}

// ResolveStoreDir returns the store directory following the precedence chain:
// flag > config.yaml value > VBRANCH_STORE_DIR > DefaultStoreDir().
func ResolveStoreDir(flag, configYAMLValue string) (string, error) {
	if dir := firstSet(flag, configYAMLValue, []string{EnvStoreDir}); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultStoreDir()
}

func resolve(flag, configYAMLValue string, envs []string, cwdDefault string) (string, error) {
	if dir := firstSet(flag, configYAMLValue, envs); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, cwdDefault), nil
}

func firstSet(flag, configYAMLValue string, envs []string) string {
	if flag != "" {
		return flag
	}
	if configYAMLValue != "" {
		return configYAMLValue
	}
	for _, name := range envs {
		if env := os.Getenv(name); env != "" {
			return env
		}
	}
	return ""
}
