// Package config handles loading and validating smart home core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading an optional .env file and overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Secrets (JWT secret, MQTT and Redis passwords, InfluxDB token) should be
// supplied through SMARTHOME_* environment variables rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Store.Backend)
package config
