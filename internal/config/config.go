// Package config locates and reads the user configuration file, idefix.cfg.
//
// A file in the working directory takes precedence over the global one in
// $XDG_CONFIG_HOME (%APPDATA% on Windows). The file is INI formatted:
//
//	[compilation]
//	compiler = g++
//	CPU = native
//
//	[idfx run]
//	recompile = prompt
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the name of the configuration file, local or global.
const FileName = "idefix.cfg"

// Config is a parsed configuration file. The zero value is an empty
// configuration where every option is unset.
type Config struct {
	path string
	v    *viper.Viper
}

// UserDir returns the directory holding the global configuration file.
func UserDir() string {
	envVar, fallback := "XDG_CONFIG_HOME", ".config"
	if runtime.GOOS == "windows" {
		envVar, fallback = "APPDATA", "AppData"
	}
	if dir := os.Getenv(envVar); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback)
}

// Locate returns the absolute path of the active configuration file as seen
// from workDir. The local file wins if it exists; otherwise the global path
// is returned even when no such file exists.
func Locate(workDir string) string {
	var candidate string
	for _, dir := range []string{workDir, UserDir()} {
		candidate = filepath.Join(dir, FileName)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			break
		}
	}
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return candidate
	}
	return abs
}

// Load reads the active configuration file as seen from workDir. A missing
// file is not an error and yields an empty configuration.
func Load(workDir string) (*Config, error) {
	return LoadFile(Locate(workDir))
}

// LoadFile reads the configuration at path.
func LoadFile(path string) (*Config, error) {
	c := &Config{path: path, v: viper.New()}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	c.v.SetConfigFile(path)
	c.v.SetConfigType("ini")
	if err := c.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return c, nil
}

// Path is the absolute path of the configuration file, which may not exist.
func (c *Config) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Option returns the raw value of name in section, or "" when unset.
// Lookups are case-insensitive.
func (c *Config) Option(section, name string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return strings.TrimSpace(c.v.GetString(section + "." + name))
}
