// Package config provides configuration management for Anvil.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("anvil.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("anvil.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ANVIL_SECTION_FIELD.
// For example:
//
//   - ANVIL_RULES_PATH overrides rules.path
//   - ANVIL_REPORT_SQLITE_DRIVER overrides report.sqlite.driver
//   - ANVIL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - ANVIL_RULES_GIT_AUTH_TOKEN overrides rules.git.auth.token
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For process-wide access, initialize once at startup:
//
//	if err := config.Initialize("anvil.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Library code should accept a *Config instead of reading the singleton.
//
// # Example Configuration
//
//	engine:
//	  units: board
//	rules:
//	  path: ./rules
//	  watch: true
//	  debounce: 200ms
//	report:
//	  backend: sqlite
//	  sqlite:
//	    path: data/anvil.db
//	    driver: sqlite
//	  retention:
//	    days: 14
//	telemetry:
//	  logging:
//	    level: debug
//	    format: json
package config
