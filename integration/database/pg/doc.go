// Package pg owns PostgreSQL connectivity: pooled connections with retry,
// schema migrations, health checks, error classification, and transaction
// propagation.
//
// Connect builds a pgxpool.Pool, dials with linear retry so a fleet
// restarting against a briefly unavailable database does not stampede it,
// and pings before returning. The render job queue (core/renderqueue)
// persists jobs through a pool obtained here.
//
// # Configuration
//
// Config is env-tagged for core/config loading:
//
//	PG_CONN_URL             required, postgres:// connection string
//	PG_MAX_OPEN_CONNS       pool ceiling (default 10)
//	PG_MAX_IDLE_CONNS       idle floor (default 5)
//	PG_HEALTHCHECK_PERIOD   pool's own liveness cadence (default 1m)
//	PG_MAX_CONN_IDLE_TIME   recycle idle conns after (default 10m)
//	PG_MAX_CONN_LIFETIME    recycle all conns after (default 30m)
//	PG_RETRY_ATTEMPTS       dial attempts before giving up (default 3)
//	PG_RETRY_INTERVAL       base wait between attempts, grows linearly (default 5s)
//	PG_MIGRATIONS_PATH      goose migrations directory (default "migrations")
//	PG_MIGRATIONS_TABLE     goose version table (default "schema_migrations")
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		log.Fatal(err)
//	}
//
// # Migrations
//
// Migrate runs goose against the pool, bridging pgx to the database/sql
// handle goose needs without opening a second pool. A missing migrations
// directory is its own sentinel, so callers that ship no migrations can
// skip instead of fail:
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		if errors.Is(err, pg.ErrMigrationsDirNotFound) {
//			logger.Info("no migrations to apply")
//		} else {
//			log.Fatal(err)
//		}
//	}
//
// Goose's own output is routed through the provided slog.Logger.
//
// # Health Checks
//
// Healthcheck returns a func(ctx) error that pings the pool, shaped for
// the readiness aggregation in render.Service.Healthcheck.
//
// # Error Classification
//
// Repositories branch on classes of database failure, not raw pgconn
// codes:
//
//	pg.IsNotFoundError(err)            // pgx.ErrNoRows
//	pg.IsDuplicateKeyError(err)        // unique violation (23505)
//	pg.IsForeignKeyViolationError(err) // referential violation (23503)
//	pg.IsTxClosedError(err)            // use of a finished transaction
//
// # Transaction Management
//
// WithTx attaches a pgx.Tx to a context and TxFromContext retrieves it, so
// repositories can participate in a transaction owned by business logic:
//
//	err := pg.RunInTx(ctx, pool, func(ctx context.Context) error {
//		// Domain writes and job enqueue see the same transaction:
//		// storage implementations call pg.TxFromContext(ctx) internally.
//		if err := projects.Create(ctx, project); err != nil {
//			return err
//		}
//		return jobs.CreateJob(ctx, job)
//	})
//
// In a storage implementation, check the context for a transaction:
//
//	func (s *PgStorage) CreateJob(ctx context.Context, job *Job) error {
//		const q = `INSERT INTO render_jobs (...) VALUES (...)`
//		if tx, ok := pg.TxFromContext(ctx); ok {
//			_, err := tx.Exec(ctx, q /* args */)
//			return err
//		}
//		_, err := s.pool.Exec(ctx, q /* args */)
//		return err
//	}
//
// Because workers run in separate sessions, they will not see uncommitted
// rows; once the transaction commits, the enqueued job becomes visible.
package pg
