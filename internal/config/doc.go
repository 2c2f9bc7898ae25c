// Package config provides configuration loading and validation for the voice gateway.
// Settings come from a YAML file layered over built-in defaults; provider secrets
// are read from the environment, optionally seeded from a .env file.
package config
