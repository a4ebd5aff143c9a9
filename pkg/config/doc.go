// Package config loads, validates and holds covenant configuration.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("covenant.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("covenant.yaml")
//
// Unknown YAML keys are rejected so that typos surface at startup.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention COVENANT_SECTION_FIELD:
//
//   - COVENANT_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - COVENANT_EVIDENCE_BACKEND overrides evidence.backend
//   - COVENANT_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// EnvKeys lists all of them. A malformed value fails loading.
//
// # Configuration Precedence
//
//  1. Default values (NewDefault)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Boolean defaults live in NewDefault and the file is decoded on top of
// them, so "enabled: false" is honoured.
//
// # Singleton Pattern
//
//	if err := config.Initialize("covenant.yaml"); err != nil {
//	    return err
//	}
//	cfg := config.GetConfig()
//
// ReloadConfig swaps the global configuration only when the new file loads
// and validates.
//
// # What Is Not Configurable
//
// The consent decision tables, cost bands and required fields are fixed in
// package consent. Configuration only shapes the surrounding service.
package config
