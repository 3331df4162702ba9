// Package config loads configuration structs from environment variables.
//
// Every package in this module describes its configuration as a plain struct
// with `env` tags (github.com/caarlos0/env) and an optional .env file for
// local development (github.com/joho/godotenv). This package ties the two
// together:
//
//	var cfg notification.MongoConfig
//	config.MustLoad(&cfg)
//
// Load is safe for concurrent use. The .env file is read at most once per
// process.
package config
