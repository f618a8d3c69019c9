package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilConfig is returned when Load receives a nil pointer.
	ErrNilConfig = errors.New("config target must not be nil")
	// ErrParseFailed is returned when environment parsing fails, typically
	// due to a missing required variable or an unparseable value.
	ErrParseFailed = errors.New("failed to parse environment")
)

var (
	cache  sync.Map // reflect.Type -> loaded config value
	dotenv sync.Once
)

// Load populates cfg from environment variables using `env` struct tags.
// The first Load in the process also reads a .env file when one exists;
// real environment variables always win over .env contents.
//
// Results are cached per type: subsequent loads of the same type return the
// first result, so every component reading the same config sees one value.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	dotenv.Do(func() {
		// A missing .env file is not an error; explicit environment always
		// takes precedence over file contents.
		_ = godotenv.Load()
	})

	key := reflect.TypeOf(*cfg)
	if cached, ok := cache.Load(key); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParseFailed, err)
	}

	actual, _ := cache.LoadOrStore(key, *cfg)
	*cfg = actual.(T)
	return nil
}

// MustLoad is Load that panics on failure. Intended for process startup
// where a missing required variable should abort immediately.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
