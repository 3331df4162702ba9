// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver: connection pooling with startup retries, goose schema
// migrations from embedded filesystems, health checks, and common error
// helpers.
//
// # Usage
//
// Typical bootstrap for a service using the Postgres notification storage:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		panic(err)
//	}
//
//	ctx := context.Background()
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, notification.Migrations, cfg, slog.Default()); err != nil {
//		panic(err)
//	}
//
//	health := pg.Healthcheck(pool)
//
// # Error Handling
//
// Helpers such as [IsDuplicateKeyError] and [IsForeignKeyViolationError]
// classify *pgconn.PgError values so storage code does not parse SQLSTATE
// codes by hand.
package pg
