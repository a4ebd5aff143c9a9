package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configMutex protects access to globalConfig.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once
)

// Initialize loads configuration from path, applies COVENANT_* environment
// overrides, validates the result and stores it as the global configuration.
//
// Call it once during startup, before any package reads GetConfig. Only the
// first call does any work; later calls return nil without reloading. Use
// ReloadConfig to pick up a changed file and SetConfig to install a
// configuration built in code.
//
// An empty path skips the file and starts from defaults:
//
//	if err := config.Initialize(""); err != nil {
//		log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Returns an error if the file cannot be read or parsed, or if the merged
// configuration fails validation. GetConfig stays nil in that case.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		configMutex.Unlock()
	})

	return initErr
}

// GetConfig returns the global configuration, or nil before a successful
// Initialize or SetConfig.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the global configuration. The CLI uses it after
// applying flag overrides; tests use it directly.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads configuration from path. On failure the current
// configuration is kept.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = cfg
	configMutex.Unlock()

	return nil
}

// MustGetConfig is GetConfig that panics when nothing is loaded.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
