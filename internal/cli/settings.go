package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings supplies default file paths so the common invocations need no
// flags. It is read from ~/.config/buildplan/settings.toml (or
// $XDG_CONFIG_HOME/buildplan/settings.toml); every field is optional and
// flags always win.
type Settings struct {
	// Catalog is the default feature catalog path (feature.json).
	Catalog string `toml:"catalog"`

	// Options is the default complete-options catalog path
	// (complete_options.json).
	Options string `toml:"options"`

	// Compile is the default base compile file path (compile.json).
	Compile string `toml:"compile"`

	// OutputDir is the directory resolved artifacts are written to.
	OutputDir string `toml:"output_dir"`
}

// LoadSettings reads the settings file. A missing or unreadable file yields
// empty settings; a malformed one is ignored the same way, since settings
// only provide defaults.
func LoadSettings() *Settings {
	s := &Settings{}
	path, err := settingsPath()
	if err != nil {
		return s
	}
	if _, err := toml.DecodeFile(path, s); err != nil {
		return &Settings{}
	}
	return s
}

// settingsPath returns the settings file location using the XDG convention.
func settingsPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "settings.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "settings.toml"), nil
}

// orSetting returns value unless empty, falling back to the setting.
func orSetting(value, setting string) string {
	if value != "" {
		return value
	}
	return setting
}
