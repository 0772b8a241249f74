package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultDataDir returns the default data directory path.
// Uses ~/.ledgerctl for user installations, /var/lib/ledgerctl as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".ledgerctl")
	}
	return "/var/lib/ledgerctl"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: ledgerctl.toml
// Search paths (in order): current directory, ~/.config/ledgerctl, /etc/ledgerctl
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ledgerctl")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ledgerctl")
		v.AddConfigPath("/etc/ledgerctl")
	}
}
