// Package config loads typed configuration structs from environment
// variables, with a .env autoload on first use and per-type caching so a
// given config type is parsed exactly once per process.
//
// Struct fields are declared with `env` tags (parsed by caarlos0/env):
//
//	type QueueConfig struct {
//		PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
//		Concurrency  int           `env:"QUEUE_CONCURRENCY" envDefault:"4"`
//		DatabaseURL  string        `env:"DATABASE_URL,required"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	// or, at startup, fail hard:
//	config.MustLoad(&cfg)
//
// Because results are cached by type, components may each call Load for the
// config they need without coordinating: the environment is read once and
// every caller observes the same value.
package config
