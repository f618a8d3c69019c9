// Package redis connects to a Redis server and verifies the connection
// before handing the client to callers.
//
// Connect parses the URL, dials with linear retry, and pings before
// returning, so a client you get back is a client that worked at least
// once. The submission rate limiter (pkg/ratelimiter) builds its
// fleet-wide token bucket store on a client obtained here.
//
// # Configuration
//
// Config is env-tagged for core/config loading:
//
//	REDIS_URL               required, redis:// or rediss:// (TLS)
//	REDIS_RETRY_ATTEMPTS    dial attempts before giving up (default 3)
//	REDIS_RETRY_INTERVAL    base wait between attempts, grows linearly (default 5s)
//	REDIS_CONNECT_TIMEOUT   cap on the whole connect sequence (default 30s)
//	REDIS_SCAN_BATCH_SIZE   batch size for SCAN-based maintenance (default 1000)
//
// URLs with any scheme other than redis:// or rediss:// are rejected with
// ErrFailedToParseRedisConnString before a dial is attempted.
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	store, err := ratelimiter.NewRedisStore(client)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Health Checks
//
// Healthcheck returns a func(ctx) error that pings the server, shaped for
// the readiness aggregation in render.Service.Healthcheck:
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil {
//		// server unreachable, wraps ErrHealthcheckFailed
//	}
//
// # Errors
//
// Connect and Healthcheck return sentinel errors matched with errors.Is:
// ErrEmptyConnectionURL and ErrFailedToParseRedisConnString for
// configuration mistakes, ErrRedisNotReady when the server never answered
// within ConnectTimeout, ErrHealthcheckFailed for a failed ping. The
// underlying go-redis error stays wrapped for logging.
package redis
