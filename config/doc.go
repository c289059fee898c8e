// Package config loads procinvoke configuration.
//
// It uses Viper to read a YAML/JSON/TOML file, godotenv to load an optional
// .env file, and binds PROCINVOKE_-prefixed environment variables onto
// nested keys before unmarshalling into the caller's struct.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("procinvoke", &cfg, config.WithConfigFile(path))
//
// Environment variables override file values, e.g.
// PROCINVOKE_PROCESS_TIMEOUT=30s sets process.timeout.
package config
