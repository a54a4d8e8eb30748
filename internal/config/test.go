package config

import "github.com/caarlos0/env/v11"

// TestConfig gates the Postgres-backed store tests. Each test run
// creates its own throwaway schema inside this database, so pointing
// the DSN at a shared instance is safe.
type TestConfig struct {
	PostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

// LoadTest errors when TEST_POSTGRES_DSN is unset; callers treat that
// as a skip, not a failure.
func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	if err := env.Parse(&cfg); err != nil {
		return TestConfig{}, err
	}
	return cfg, nil
}
