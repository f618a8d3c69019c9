package redis

import "errors"

// Sentinel errors returned by Connect and Healthcheck. Callers match them
// with errors.Is to tell configuration mistakes apart from an unreachable
// server, which matters for retry decisions during startup.
var (
	ErrEmptyConnectionURL           = errors.New("redis connection URL is empty")
	ErrFailedToParseRedisConnString = errors.New("redis connection string is not parseable")
	ErrRedisNotReady                = errors.New("redis not ready before timeout")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)
