// Package config provides configuration loading for Palisade.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for palisade.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("palisade")
		viper.SetConfigType("yaml")
	}

	// Booleans default false via the zero value; metrics is on by default.
	viper.SetDefault("metrics.enabled", true)

	// Environment variable support: PALISADE_SERVER_LISTEN_ADDR
	viper.SetEnvPrefix("PALISADE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a palisade config file
// with an explicit YAML extension (.yaml or .yml).
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".palisade"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "palisade"))
		}
	} else {
		paths = append(paths, "/etc/palisade")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for palisade.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "palisade"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested config keys for environment variable support.
// Example: PALISADE_SERVER_LISTEN_ADDR overrides server.listen_addr
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.listen_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.cert_file")
	_ = viper.BindEnv("server.key_file")
	_ = viper.BindEnv("server.shutdown_timeout")

	_ = viper.BindEnv("access_log.output")
	_ = viper.BindEnv("access_log.buffer_size")
	_ = viper.BindEnv("access_log.batch_size")
	_ = viper.BindEnv("access_log.flush_interval")
	_ = viper.BindEnv("access_log.retention_days")

	// Note: metrics.keys is an array; use the config file for it.
	_ = viper.BindEnv("metrics.enabled")
	_ = viper.BindEnv("metrics.require_auth")

	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("tracing.service_name")

	_ = viper.BindEnv("dev_mode")
}
