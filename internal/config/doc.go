// Package config provides environment-based configuration loading.
//
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env struct tags.
// Both network ports are fixed defaults that may be overridden per environment.
package config
