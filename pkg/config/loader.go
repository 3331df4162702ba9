package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load populates the provided configuration struct from environment
// variables based on `env` field tags.
//
// The first call attempts to load a .env file from the working directory;
// a missing file is not an error. Parsing errors are wrapped with
// ErrParsingConfig so callers can detect misconfiguration with errors.Is.
//
// Example:
//
//	type MailerConfig struct {
//		Token  string `env:"POSTMARK_SERVER_TOKEN,required"`
//		Sender string `env:"SENDER_EMAIL,required"`
//	}
//
//	var cfg MailerConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional; ignore the error.
		_ = godotenv.Load()
	})

	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Intended for configurations the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
