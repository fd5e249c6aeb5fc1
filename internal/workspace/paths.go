package workspace

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.chatarc.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatarc")
}

// Dir returns the profile-specific directory.
func Dir(profile string) string {
	return filepath.Join(BaseDir(), "profiles", profile)
}

// DBPath returns the archive database path for a profile.
func DBPath(profile string) string {
	return filepath.Join(Dir(profile), "archive.db")
}

// LegacyDBPath returns the pre-rewrite database path for a profile.
// Older releases kept a separate store under this name.
func LegacyDBPath(profile string) string {
	return filepath.Join(Dir(profile), "chatarc-legacy.db")
}

// MigrationFlagPath returns the legacy-migration marker file path.
// The flag lives outside the versioned store so it survives schema upgrades.
func MigrationFlagPath(profile string) string {
	return filepath.Join(Dir(profile), "MIGRATED")
}

// LockPath returns the lock file path for a profile.
func LockPath(profile string) string {
	return filepath.Join(Dir(profile), "LOCK")
}

// LogDir returns the log directory for a profile.
func LogDir(profile string) string {
	return filepath.Join(Dir(profile), "logs")
}

// LogPath returns the log file path for a profile.
func LogPath(profile string) string {
	return filepath.Join(LogDir(profile), "chatarc.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(profile string) error {
	dirs := []string{
		Dir(profile),
		LogDir(profile),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
